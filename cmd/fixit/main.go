package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fixitapp/fixit/internal/profile"
	"github.com/fixitapp/fixit/server"
	"github.com/fixitapp/fixit/store"
	"github.com/fixitapp/fixit/store/db"
)

const greetingBanner = `
Fixit - turn mistakes into mastery.
`

var rootCmd = &cobra.Command{
	Use:   "fixit",
	Short: "A spaced-repetition mistake notebook server",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		instanceProfile, err := profile.GetProfile()
		if err != nil {
			return err
		}
		setupLogger(instanceProfile)

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			return err
		}

		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			return err
		}

		s, err := server.NewServer(ctx, instanceProfile, storeInstance)
		if err != nil {
			return err
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			slog.Info("received signal, shutting down", slog.String("signal", sig.String()))
			s.Shutdown(ctx)
			cancel()
		}()

		fmt.Print(greetingBanner)
		if err := s.Start(ctx); err != nil {
			cancel()
			return err
		}

		<-ctx.Done()
		return nil
	},
}

func setupLogger(p *profile.Profile) {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func init() {
	rootCmd.PersistentFlags().String("mode", "dev", `mode of the server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of the server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of the server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", `database driver, "sqlite" or "postgres"`)
	rootCmd.PersistentFlags().String("dsn", "", "database source name")
	rootCmd.PersistentFlags().String("secret", "", "secret used to sign access tokens")
	rootCmd.PersistentFlags().String("ai-api-key", "", "API key for AI features")
	rootCmd.PersistentFlags().String("ai-base-url", "", "base URL of an OpenAI-compatible API")
	rootCmd.PersistentFlags().String("ai-model", "", "chat model for analysis generation")
	rootCmd.PersistentFlags().String("ai-embedding-model", "", "embedding model for similar-question search")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}

	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)
	viper.SetEnvPrefix("fixit")
	viper.AutomaticEnv()
	// FIXIT_AI_API_KEY binds to the ai-api-key flag.
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("failed to start", slog.Any("err", err))
		os.Exit(1)
	}
}
