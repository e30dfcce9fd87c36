package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// version is the application version, set via ldflags.
var version string = "dev"

var rootCmd = &cobra.Command{
	Use:   "foldermerge SOURCE DESTINATION",
	Short: "Merge the files of a folder into one annotated file.",
	Long: `foldermerge concatenates the files of a folder into a single UTF-8 file.
Each file is preceded by a metadata block (text and xml modes) or labeled with
its relative path (recursive mode). SOURCE may also be a git repository URL.
With --interactive only DESTINATION is given and SOURCE is picked from a list.`,
	Version: version,
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := ParseMode(viper.GetString("mode"))
		if err != nil {
			return err
		}
		return runMerge(mode, args)
	},
}

func modeCommand(mode Mode, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(mode) + " SOURCE DESTINATION",
		Short: short,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(mode, args)
		},
	}
}

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Print the metadata template that merges use by default",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(resolveMetadata())
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/foldermerge/config.toml)")

	pf.StringP("mode", "m", string(ModeText), "Merge mode: text, xml, or recursive")
	viper.BindPFlag("mode", pf.Lookup("mode"))
	pf.String("metadata", "", "Metadata template written before each file (overrides --metadata-file)")
	viper.BindPFlag("metadata", pf.Lookup("metadata"))
	pf.String("metadata-file", defaultMetadataFile, "File holding the default metadata template")
	viper.BindPFlag("metadata_file", pf.Lookup("metadata-file"))

	// Discovery
	pf.Bool("respect-gitignore", false, "Skip files matched by the source's .gitignore")
	viper.BindPFlag("respect_gitignore", pf.Lookup("respect-gitignore"))
	pf.Bool("skip-hidden", false, "Skip hidden files and directories")
	viper.BindPFlag("skip_hidden", pf.Lookup("skip-hidden"))
	pf.StringP("include", "i", "", "Only merge files matching these patterns (comma-separated, e.g. *.md,*.txt)")
	viper.BindPFlag("include", pf.Lookup("include"))
	pf.StringP("exclude", "e", "", "Skip files and directories matching these patterns (comma-separated)")
	viper.BindPFlag("exclude", pf.Lookup("exclude"))
	pf.Bool("known-languages", false, "Only merge files whose language is listed in languages.yml")
	viper.BindPFlag("known_languages", pf.Lookup("known-languages"))
	pf.Bool("interactive", false, "Pick the source folder interactively")
	viper.BindPFlag("interactive", pf.Lookup("interactive"))

	// Content
	pf.Bool("html-to-markdown", false, "Write .html and .htm files as Markdown")
	viper.BindPFlag("html_to_markdown", pf.Lookup("html-to-markdown"))
	pf.Bool("tokens", false, "Count tokens of merged content")
	viper.BindPFlag("tokens", pf.Lookup("tokens"))
	pf.String("tokenizer", "tiktoken", "Tokenizer to use: tiktoken or huggingface")
	viper.BindPFlag("tokenizer", pf.Lookup("tokenizer"))
	pf.String("model", "", "Model name for tokenizer (e.g., gpt-4o, gpt2)")
	viper.BindPFlag("model", pf.Lookup("model"))
	pf.String("tokenizer-file", "", "Path to local tokenizer file")
	viper.BindPFlag("tokenizer_file", pf.Lookup("tokenizer-file"))

	// Output
	pf.String("pdf", "", "Also render the merged files as PDF")
	viper.BindPFlag("pdf", pf.Lookup("pdf"))
	pf.BoolP("clipboard", "c", false, "Copy the merged output to the clipboard")
	viper.BindPFlag("clipboard", pf.Lookup("clipboard"))
	pf.Bool("tree", false, "Print a tree of the merged files")
	viper.BindPFlag("tree", pf.Lookup("tree"))
	pf.BoolP("verbose", "v", false, "Log discovery and merge details")
	viper.BindPFlag("verbose", pf.Lookup("verbose"))

	viper.SetDefault("mode", string(ModeText))
	viper.SetDefault("metadata_file", defaultMetadataFile)
	viper.SetDefault("tokenizer", "tiktoken")

	rootCmd.AddCommand(
		modeCommand(ModeText, "Merge the files directly inside SOURCE"),
		modeCommand(ModeXML, "Merge the .xml files directly inside SOURCE"),
		modeCommand(ModeRecursive, "Merge every file below SOURCE"),
		metadataCmd,
	)
}

// configDirs are the directories searched for config.toml and languages.yml.
func configDirs() []string {
	var dirs []string
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "foldermerge"))
	}
	return append(dirs, ".")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		for _, dir := range configDirs() {
			viper.AddConfigPath(dir)
		}
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("FOLDERMERGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
		fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
	}
}

// resolveMetadata returns the --metadata value, or the template loaded from
// metadata_file. A relative metadata_file is resolved against the directory
// of the config file in use.
func resolveMetadata() string {
	if meta := viper.GetString("metadata"); meta != "" {
		return meta
	}
	path := viper.GetString("metadata_file")
	if used := viper.ConfigFileUsed(); used != "" && path != "" && !filepath.IsAbs(path) {
		if candidate := filepath.Join(filepath.Dir(used), path); fileExists(candidate) {
			path = candidate
		}
	}
	return LoadDefaultMetadata(path)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildMerger assembles a Merger from the resolved configuration.
func buildMerger(logger *slog.Logger) *Merger {
	discovery := DiscoveryOptions{
		RespectGitignore: viper.GetBool("respect_gitignore"),
		SkipHidden:       viper.GetBool("skip_hidden"),
		Include:          parsePatterns(viper.GetString("include")),
		Exclude:          parsePatterns(viper.GetString("exclude")),
	}
	if viper.GetBool("known_languages") {
		langFile, err := findLanguageFile(configDirs())
		if err == nil {
			discovery.Languages, err = loadLanguageData(langFile)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Could not load language definitions: %v\n", err)
			fmt.Fprintln(os.Stderr, "Proceeding without language-based filtering.")
		}
	}

	opts := []Option{WithLogger(logger), WithDiscovery(discovery)}
	if viper.GetBool("html_to_markdown") {
		opts = append(opts, WithConverter(newHTMLConverter()))
	}
	if viper.GetString("pdf") != "" {
		opts = append(opts, WithRetainedBodies())
	}

	if viper.GetBool("tokens") {
		tk, err := newTokenizer(TokenizerConfig{
			Type:  viper.GetString("tokenizer"),
			Model: viper.GetString("model"),
			File:  viper.GetString("tokenizer_file"),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing tokenizer: %v\n", err)
			fmt.Fprintln(os.Stderr, "Token counting disabled due to error.")
		} else {
			opts = append(opts, WithTokenizer(tk))
		}
	}
	return NewMerger(opts...)
}

// runMerge resolves SOURCE and DESTINATION from args, merges, and reports.
func runMerge(mode Mode, args []string) error {
	var source, destination string
	if viper.GetBool("interactive") {
		if len(args) != 1 {
			return fmt.Errorf("interactive mode takes only DESTINATION, got %d arguments", len(args))
		}
		destination = args[0]
		picked, err := pickSourceDir(".", !viper.GetBool("skip_hidden"))
		if err != nil {
			return fmt.Errorf("interactive mode error: %w", err)
		}
		if picked == "" {
			fmt.Println("Interactive selection aborted.")
			return nil
		}
		source = picked
	} else {
		if len(args) != 2 {
			return fmt.Errorf("expected SOURCE and DESTINATION, got %d arguments", len(args))
		}
		source, destination = args[0], args[1]
	}

	treeRoot := filepath.Base(filepath.Clean(source))
	if isGitURL(source) {
		treeRoot = strings.TrimSuffix(filepath.Base(source), ".git")
		tempDir, err := cloneGitRepo(source)
		if err != nil {
			return err
		}
		defer func() {
			fmt.Printf("Cleaning up temporary directory: %s\n", tempDir)
			_ = os.RemoveAll(tempDir)
		}()
		source = tempDir
	}

	logger := newLogger(viper.GetBool("verbose"))
	result, err := buildMerger(logger).Merge(MergeRequest{
		Source:      source,
		Destination: destination,
		Metadata:    resolveMetadata(),
		Mode:        mode,
	})
	if err != nil {
		return err
	}

	fmt.Print(summaryText(result))
	if viper.GetBool("tree") {
		fmt.Println()
		fmt.Print(printTree(buildTree(treeRoot, result.Entries)))
	}

	if pdfPath := viper.GetString("pdf"); pdfPath != "" {
		if err := exportPDF(result, pdfPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating PDF: %v\n", err)
		}
	}

	if viper.GetBool("clipboard") {
		merged, err := os.ReadFile(destination)
		if err == nil {
			err = clipboard.WriteAll(string(merged))
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing to clipboard: %v\n", err)
		} else {
			fmt.Println("Output copied to clipboard.")
		}
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
