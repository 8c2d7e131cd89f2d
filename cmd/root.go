package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"

	"github.com/shouni/go-link-checker/internal/config"
	"github.com/shouni/go-link-checker/internal/logx"
)

// --- グローバル定数 ---

const appName = "link-checker"

// --- グローバル変数とフラグ構造体 ---

// AppFlags はこのアプリケーション固有の永続フラグを保持
type AppFlags struct {
	ConfigPath string // --config-file 設定ファイル (YAML)
	LogFormat  string // --log-format console|json
}

var Flags AppFlags

// appContext はPreRunで一度だけ組み立てられ、各サブコマンドからは読み取り専用で使われます。
type appContext struct {
	cfg    config.Config
	logger zerolog.Logger
}

var app appContext

// --- 初期化とロジック (clibaseへのコールバックとして利用) ---

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVar(&Flags.ConfigPath, "config-file", "", "設定ファイル (YAML) のパス")
	rootCmd.PersistentFlags().StringVar(&Flags.LogFormat, "log-format", "", "ログの出力形式 (console|json)")
}

// initAppPreRunE は、clibase共通処理の後に実行される、アプリケーション固有のPersistentPreRunEです。
// 設定は デフォルト値 → 設定ファイル → 環境変数 → フラグ の順に上書きされます。
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile(config.Default(), Flags.ConfigPath)
	if err != nil {
		return err
	}
	cfg, err = config.ApplyEnv(cfg, os.LookupEnv)
	if err != nil {
		return fmt.Errorf("環境変数の読み込みエラー: %w", err)
	}
	if Flags.LogFormat != "" {
		cfg.LogFormat = Flags.LogFormat
	}
	if clibase.Flags.Verbose {
		cfg.LogLevel = "debug"
	}

	app = appContext{
		cfg:    cfg,
		logger: logx.New(os.Stderr, cfg.LogLevel, cfg.LogFormat),
	}
	app.logger.Debug().Interface("config", cfg).Msg("設定を読み込みました")
	return nil
}

// --- エントリポイント ---

// Execute は、clibase を使ってルートコマンドを組み立てて実行します。
func Execute() {
	clibase.Execute(
		appName,
		addAppPersistentFlags,
		initAppPreRunE,
		serveCmd,
		checkCmd,
	)
}
