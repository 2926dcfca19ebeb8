package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BaGreal2/cinematch-server/internal/buildconfig"
)

var (
	propertiesPath string
	packageName    string
	outPath        string
	strict         bool
)

var errMissingKeys = errors.New("missing keys")

var rootCmd = &cobra.Command{
	Use:           "buildconfig",
	Short:         "Bake local.properties secrets into Go constants",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the constants file",
	Long: `Reads the properties file and writes one string constant per declared key:
  TMDB_READ_ACCESS_TOKEN, TMDB_API_KEY, FB_ROUTE_INSTANCE_URL

A missing file or key is written as the literal "null" unless --strict is set.`,
	RunE: runGenerate,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report which keys the properties file provides",
	RunE:  runCheck,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&propertiesPath, "properties", "p", buildconfig.DefaultFile, "path to the properties file")

	generateCmd.Flags().StringVar(&packageName, "package", "buildconst", "package name of the generated file")
	generateCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (stdout when empty)")
	generateCmd.Flags().BoolVar(&strict, "strict", false, "fail when any key is missing")

	checkCmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any key is missing")

	rootCmd.AddCommand(generateCmd, checkCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	props, err := buildconfig.Load(propertiesPath)
	if err != nil {
		return err
	}

	if missing := buildconfig.Missing(props); len(missing) > 0 {
		if strict {
			return fmt.Errorf("%w in %s: %s", errMissingKeys, propertiesPath, strings.Join(missing, ", "))
		}
		cmd.PrintErrf("warning: %s not set in %s, using %q\n", strings.Join(missing, ", "), propertiesPath, buildconfig.Null)
	}

	opts := buildconfig.GenerateOptions{
		Package: packageName,
		Source:  propertiesPath,
		Fields:  buildconfig.Fields(props),
	}

	if outPath == "" {
		return buildconfig.Generate(cmd.OutOrStdout(), opts)
	}

	changed, err := buildconfig.WriteFile(outPath, opts)
	if err != nil {
		return err
	}
	if changed {
		cmd.Printf("wrote %s\n", outPath)
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	props, err := buildconfig.Load(propertiesPath)
	if err != nil {
		return err
	}

	if !props.Found() {
		cmd.Printf("%s not found\n", propertiesPath)
	}
	for _, k := range buildconfig.Keys {
		v, ok := props.Get(k)
		if !ok {
			cmd.Printf("%-24s missing\n", k)
			continue
		}
		cmd.Printf("%-24s %s\n", k, mask(v))
	}

	if missing := buildconfig.Missing(props); strict && len(missing) > 0 {
		return fmt.Errorf("%w: %s", errMissingKeys, strings.Join(missing, ", "))
	}
	return nil
}

func mask(v string) string {
	if len(v) <= 4 {
		return strings.Repeat("*", len(v))
	}
	return v[:4] + strings.Repeat("*", len(v)-4)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "buildconfig:", err)
		os.Exit(1)
	}
}
