// katedit - inspect and edit Everbyte .kat saves without the original
// game assemblies.
//
// Usage:
//
//	katedit dump <input>                          Dump a save to JSON
//	katedit edit <input> <output> --set p=v ...   Edit fields, write a new save
//	katedit version                               Print version info
//
// Paths use dots for fields and brackets for lists:
//
//	katedit edit PersData.kat Patched.kat \
//	    --set coins=999999 \
//	    --set userSettings.energyCap=120 \
//	    --set paths[0].activeState=true \
//	    --set username='"Alice"'
//
// Unquoted values are typed (numbers, true/false/null); quotes force a
// string, which also protects zero-padded ids like "00123".
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/duskwood-tools/katedit/kat"
	"github.com/duskwood-tools/katedit/nrbf"
)

const version = "0.2.0"

var log = logrus.New()

func main() {
	var (
		prefix  string
		vendor  string
		verbose bool
	)

	rootCmd := &cobra.Command{
		Use:           "katedit",
		Short:         "Edit BinaryFormatter saves with missing assemblies",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetOutput(os.Stderr)
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&prefix, "prefix", kat.DefaultPrefix,
		"namespace prefix redirected to the capture shape")
	rootCmd.PersistentFlags().StringVar(&vendor, "vendor", kat.DefaultVendor,
		"vendor substring redirected to the capture shape")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"log decode diagnostics to stderr")

	dumpCmd := &cobra.Command{
		Use:   "dump <input>",
		Short: "Dump a save to JSON on stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args[0], prefix, vendor)
		},
	}

	var sets []string
	editCmd := &cobra.Command{
		Use:   "edit <input> <output>",
		Short: "Apply --set assignments and write a new save",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(args[0], args[1], sets, prefix, vendor)
		},
	}
	editCmd.Flags().StringArrayVar(&sets, "set", nil,
		"assignment like coins=999 or paths[0].activeState=true (repeatable)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("katedit %s\n", version)
		},
	}

	rootCmd.AddCommand(dumpCmd, editCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "katedit: %v\n", err)
		os.Exit(1)
	}
}

// decodeFile reads, unwraps and decodes a save. The second result
// reports whether the container was gzip-compressed.
func decodeFile(path, prefix, vendor string) (*kat.Value, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	compressed := nrbf.IsCompressed(data)
	if compressed {
		log.Debug("input is gzip-compressed")
		if data, err = nrbf.Decompress(data); err != nil {
			return nil, false, err
		}
	}

	binder := kat.NewBinder()
	binder.Prefix = prefix
	binder.Vendor = vendor

	dec := nrbf.NewDecoder(bytes.NewReader(data), binder)
	root, err := dec.Decode()
	if err != nil {
		return nil, false, err
	}
	stats := dec.Stats()
	log.WithFields(logrus.Fields{
		"objects":  stats.Objects,
		"captured": stats.Captured,
		"native":   stats.Native,
		"opaque":   stats.Opaque,
		"strings":  stats.Strings,
		"arrays":   stats.Arrays,
	}).Debug("decoded object graph")
	return root, compressed, nil
}

func runDump(input, prefix, vendor string) error {
	root, _, err := decodeFile(input, prefix, vendor)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(kat.Project(root))
}

func runEdit(input, output string, sets []string, prefix, vendor string) error {
	root, compressed, err := decodeFile(input, prefix, vendor)
	if err != nil {
		return err
	}

	// Assignments apply in command-line order; the first failure aborts
	// the whole edit and nothing is written.
	for _, assignment := range sets {
		pathExpr, literal, ok := strings.Cut(assignment, "=")
		if !ok {
			return fmt.Errorf("--set must be path=value, got: %s", assignment)
		}
		path, err := kat.ParsePath(strings.TrimSpace(pathExpr))
		if err != nil {
			return err
		}
		if err := kat.Assign(root, path, kat.Coerce(strings.TrimSpace(literal))); err != nil {
			return err
		}
		log.WithField("path", path.Expr).Debug("assigned")
	}

	var buf bytes.Buffer
	if err := nrbf.Encode(&buf, root); err != nil {
		return err
	}
	out := buf.Bytes()
	if compressed {
		if out, err = nrbf.Compress(out); err != nil {
			return err
		}
	}
	return os.WriteFile(output, out, 0o644)
}
