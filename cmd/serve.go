package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shouni/go-link-checker/internal/server"
	"github.com/shouni/go-link-checker/pkg/checker"
	"github.com/shouni/go-link-checker/pkg/extract"
	"github.com/shouni/go-link-checker/pkg/fetcher"
)

const shutdownTimeout = 10 * time.Second

var serveFlags struct {
	host        string
	port        int
	concurrency int
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "リンクチェックのWebサーバーを起動します",
	Long:  `フォーム (GET /) と POST /check_links を提供し、チェック結果を links_analysis.csv としてダウンロードさせます。`,
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.cfg
		if cmd.Flags().Changed("host") {
			cfg.Host = serveFlags.host
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = serveFlags.port
		}
		if cmd.Flags().Changed("concurrency") {
			cfg.Concurrency = serveFlags.concurrency
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("設定エラー: %w", err)
		}

		c := checker.New(
			fetcher.New(checker.FetchTimeout),
			extract.NewClassifier(),
			checker.WithMaxConcurrency(cfg.Concurrency),
			checker.WithLogger(app.logger),
		)
		srv := server.NewHTTPServer(cfg.Addr(), server.NewHandler(c, app.logger), cfg.Concurrency)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			app.logger.Info().Str("addr", cfg.Addr()).Msg("HTTPサーバーを起動します")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTPサーバーの起動エラー: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		app.logger.Info().Msg("シャットダウンします")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTPサーバーの停止エラー: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.host, "host", "", "待ち受けるホスト (環境変数 HOST)")
	serveCmd.Flags().IntVarP(&serveFlags.port, "port", "p", 0, "待ち受けるポート (環境変数 PORT)")
	serveCmd.Flags().IntVarP(&serveFlags.concurrency, "concurrency", "c", checker.DefaultMaxConcurrency, "最大同時フェッチ数")
}
