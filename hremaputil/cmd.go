/*
Copyright © 2026 the HRemap authors.
This file is part of HRemap.

HRemap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

HRemap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with HRemap.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package hremaputil holds the command-line interface for the hremap
// remapping tools.
package hremaputil

import (
	"fmt"
	"os"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/spatialmodel/hremap"
	"github.com/spatialmodel/hremap/comms"
)

// Version is the version of this software distribution.
const Version = "1.0.0"

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to the hremap
	// commands.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "rank",
			usage: `
              rank specifies the identity of this process within the
              worker cluster, in the range [0, size).`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{workerCmd.Flags()},
		},
		{
			name: "size",
			usage: `
              size specifies the total number of processes in the worker
              cluster.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{workerCmd.Flags()},
		},
		{
			name: "root_addr",
			usage: `
              root_addr specifies the address rank 0 of the worker
              cluster listens on for collective communication.`,
			defaultVal: "127.0.0.1:6060",
			flagsets:   []*pflag.FlagSet{workerCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("HREMAP")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(checkCmd)
	Root.AddCommand(dumpCmd)
	Root.AddCommand(applyCmd)
	Root.AddCommand(workerCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("hremap: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "hremap",
	Short: "Tools for sparse horizontal remapping.",
	Long: `hremap reads sparse remap operators from NetCDF map files and applies
them to gridded fields. Use the subcommands specified below to access the
functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'HREMAP_var' where 'var' is
the name of the variable to be set.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of hremap.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("hremap v%s\n", Version)
	},
	DisableAutoGenTag: true,
}

// loadMapSerial constructs a remap operator from a map file on a single
// rank that owns every target DOF the file references.
func loadMapSerial(filename string) (*hremap.Map, error) {
	dofs, minDof, err := hremap.ReadTargetDofs(filename)
	if err != nil {
		return nil, err
	}
	m, err := hremap.NewMapDofs(comms.Self{}, filename, dofs, minDof)
	if err != nil {
		return nil, err
	}
	if err := m.SegmentsFromFile(filename); err != nil {
		return nil, err
	}
	if err := m.Finalize(); err != nil {
		return nil, err
	}
	return m, nil
}

// checkCmd validates the segments of a map file.
var checkCmd = &cobra.Command{
	Use:   "check [map file]",
	Short: "Validate a remap operator.",
	Long: `check reads the remap operator in the given map file and verifies that
every segment is well formed and that its weights sum to 1. All broken
segments are reported.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadMapSerial(args[0])
		if err != nil {
			return err
		}
		if err := m.Check(); err != nil {
			return err
		}
		cmd.Printf("%s: %d segments, %d unique source DOFs, all weights conservative\n",
			args[0], m.NumSegments(), len(m.UniqueSourceDofs()))
		return nil
	},
	DisableAutoGenTag: true,
}

// dumpCmd prints the contents of a map file.
var dumpCmd = &cobra.Command{
	Use:   "dump [map file]",
	Short: "Print a remap operator.",
	Long: `dump reads the remap operator in the given map file and prints a
deterministic listing of its segments, weights, and unique source DOFs,
suitable for diffing against a reference.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadMapSerial(args[0])
		if err != nil {
			return err
		}
		m.Dump(cmd.OutOrStdout())
		return nil
	},
	DisableAutoGenTag: true,
}

// applyCmd applies a remap operator to a field.
var applyCmd = &cobra.Command{
	Use:   "apply [config file]",
	Short: "Apply a remap operator to a field.",
	Long: `apply reads a field variable from a source NetCDF file, applies the
remap operator in the configured map file to every vertical level, and
writes the remapped field to an output NetCDF file. The configuration is a
TOML file; see the ApplyConfig documentation for the available fields.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := ReadApplyConfig(args[0])
		if err != nil {
			return err
		}
		return Apply(cfg)
	},
	DisableAutoGenTag: true,
}

// workerCmd joins a distributed construction as one rank.
var workerCmd = &cobra.Command{
	Use:   "worker [map file]",
	Short: "Join a distributed remap construction.",
	Long: `worker participates as one rank in the distributed construction of the
remap operator in the given map file. Every rank of the cluster must run
this command with the same size and root address; rank 0 coordinates the
collective communication.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rank, err := cast.ToIntE(Cfg.Get("rank"))
		if err != nil {
			return fmt.Errorf("hremap: parsing rank: %v", err)
		}
		size, err := cast.ToIntE(Cfg.Get("size"))
		if err != nil {
			return fmt.Errorf("hremap: parsing size: %v", err)
		}
		return RunWorker(rank, size, Cfg.GetString("root_addr"), args[0])
	},
	DisableAutoGenTag: true,
}

// Execute runs the root command, printing any error to standard error.
func Execute() {
	if err := Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
