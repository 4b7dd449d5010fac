// Command causalmem inspects and exercises a causal memory database
// from the shell: append events, reconstruct narratives, and poke at
// the relevance analyzer.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/threadline-ai/causalmem/causal"
	causalsqlite "github.com/threadline-ai/causalmem/causal/sqlite"
	"github.com/threadline-ai/causalmem/embedder"
	"github.com/threadline-ai/causalmem/embedder/mock"
	"github.com/threadline-ai/causalmem/oracle"
	"github.com/threadline-ai/causalmem/oracle/claude"
	"github.com/threadline-ai/causalmem/relevance"
)

var (
	dbPath    string
	sessionID string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "causalmem",
	Short: "Causal memory for conversational agents",
	Long: `causalmem maintains an append-only log of events, links each new
event to its most likely cause, and reconstructs cause-and-effect
narratives on demand.

Events are stored in a local SQLite database. Set ANTHROPIC_API_KEY to
enable oracle-confirmed causal links; without it, events are recorded
unlinked.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

var recordCmd = &cobra.Command{
	Use:   "record <event text>",
	Short: "Append an event to the causal log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := causalsqlite.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open event store: %w", err)
		}
		defer store.Close()

		linker := causal.NewLinker(store, newEmbedder(), newOracle(), causalConfig())
		id, err := linker.Record(context.Background(), args[0], sessionID, "")
		if err != nil {
			return fmt.Errorf("record event: %w", err)
		}

		ev, err := store.Get(context.Background(), id)
		if err != nil {
			return err
		}
		if ev != nil && ev.CauseID != nil {
			fmt.Printf("Event %d recorded, caused by event %d: %s\n", id, *ev.CauseID, ev.RelationshipText)
		} else {
			fmt.Printf("Event %d recorded (no cause found)\n", id)
		}
		return nil
	},
}

var narrativeCmd = &cobra.Command{
	Use:   "narrative <query>",
	Short: "Reconstruct the causal story behind a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := causalsqlite.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open event store: %w", err)
		}
		defer store.Close()

		rec := causal.NewReconstructor(store, newEmbedder(), causalConfig())
		fmt.Println(rec.Narrative(context.Background(), args[0], sessionID))
		return nil
	},
}

var topicsCmd = &cobra.Command{
	Use:   "topics <text>",
	Short: "Extract key topics from text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		analyzer := relevance.NewAnalyzer(relevanceConfig())
		topics := analyzer.ExtractTopics(args[0])
		if len(topics) == 0 {
			fmt.Println("No topics found.")
			return nil
		}
		fmt.Println(strings.Join(topics, ", "))
		return nil
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score <current directive> <past directive>",
	Short: "Score a past directive's relevance to the current one",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ageHours, _ := cmd.Flags().GetFloat64("age-hours")

		analyzer := relevance.NewAnalyzer(relevanceConfig())
		entry := relevance.HistoryEntry{
			Directive: args[1],
			CreatedAt: time.Now().Add(-time.Duration(ageHours * float64(time.Hour))),
		}
		score := analyzer.Score(args[0], entry)
		fmt.Printf("%.4f (threshold %.2f)\n", score, analyzer.Threshold())
		return nil
	},
}

func causalConfig() *causal.Config {
	return &causal.Config{
		SimilarityThreshold: viper.GetFloat64("causal.similarity_threshold"),
		MaxPotentialCauses:  viper.GetInt("causal.max_potential_causes"),
		TimeDecay:           viper.GetDuration("causal.time_decay"),
	}
}

func relevanceConfig() *relevance.Config {
	return &relevance.Config{
		Threshold: viper.GetFloat64("relevance.threshold"),
		MaxAge:    viper.GetDuration("relevance.max_age"),
	}
}

// newEmbedder returns the deterministic local embedder. Swap in the
// onnx build for sentence-transformer embeddings.
func newEmbedder() embedder.Embedder {
	return mock.New()
}

// newOracle returns the Claude-backed oracle when an API key is
// configured, or the disabled oracle otherwise.
func newOracle() oracle.Oracle {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		log.Debug("ANTHROPIC_API_KEY not set; events will be recorded unlinked")
		return oracle.Disabled{}
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	judge, err := claude.New(&client, claude.Config{
		Model: viper.GetString("oracle.model"),
	})
	if err != nil {
		log.Warn("oracle unavailable", "err", err)
		return oracle.Disabled{}
	}
	return judge
}

func initConfig() {
	// A local .env is a convenience for development, not a requirement.
	_ = godotenv.Load()

	viper.SetDefault("causal.similarity_threshold", causal.DefaultConfig.SimilarityThreshold)
	viper.SetDefault("causal.max_potential_causes", causal.DefaultConfig.MaxPotentialCauses)
	viper.SetDefault("causal.time_decay", causal.DefaultConfig.TimeDecay)
	viper.SetDefault("relevance.threshold", relevance.DefaultConfig.Threshold)
	viper.SetDefault("relevance.max_age", relevance.DefaultConfig.MaxAge)
	viper.SetDefault("oracle.model", "")

	viper.SetConfigName("causalmem")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			log.Warn("config file not read", "err", err)
		}
	}

	viper.SetEnvPrefix("CAUSALMEM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func main() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "causalmem.db", "Path to the SQLite event database")
	rootCmd.PersistentFlags().StringVarP(&sessionID, "session", "s", "", "Session to scope operations to")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	scoreCmd.Flags().Float64("age-hours", 0, "Age of the past directive in hours")

	rootCmd.AddCommand(recordCmd, narrativeCmd, topicsCmd, scoreCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
