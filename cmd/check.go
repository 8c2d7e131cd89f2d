package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/spf13/cobra"

	"github.com/shouni/go-link-checker/internal/config"
	"github.com/shouni/go-link-checker/internal/pipeline"
	"github.com/shouni/go-link-checker/pkg/checker"
	"github.com/shouni/go-link-checker/pkg/extract"
	"github.com/shouni/go-link-checker/pkg/feed"
	"github.com/shouni/go-link-checker/pkg/fetcher"
	"github.com/shouni/go-link-checker/pkg/report"
	"github.com/shouni/go-link-checker/pkg/types"
)

const (
	feedTimeout    = 20 * time.Second
	feedMaxRetries = 2
)

var checkFlags struct {
	urls        string
	feedURL     string
	output      string
	concurrency int
}

var checkCmd = &cobra.Command{
	Use:   "check [URL...]",
	Short: "URLのリストをチェックし、結果をCSVに書き出します",
	Long: `引数、--urls (カンマ区切り)、--feed (RSS/Atomフィードの記事リンク)、または標準入力 (空白区切り) からURLを受け取り、
先頭100件の到達性と本文の有無をチェックして links_analysis.csv を書き出します。`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := checkConfig(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// 1. 処理対象URLのリストを決定
		urls, err := collectURLs(ctx, cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return fmt.Errorf("処理対象のURLが一つも指定されていません: %w", checker.ErrNoInput)
		}

		// 2. 依存性の初期化 (Fetcher -> Classifier -> Checker)
		total := min(len(urls), checker.MaxURLs)
		bar := pb.Simple.New(total).SetWriter(cmd.ErrOrStderr()).Start()

		c := checker.New(
			fetcher.New(checker.FetchTimeout),
			extract.NewClassifier(),
			checker.WithMaxConcurrency(cfg.Concurrency),
			checker.WithLogger(app.logger),
			checker.WithResultHook(func(types.LinkResult) { bar.Increment() }),
		)

		// 3. メインロジックの実行
		res, err := pipeline.Run(ctx, c, urls)
		bar.Finish()
		if err != nil {
			return fmt.Errorf("リンクチェックの実行エラー: %w", err)
		}

		// 4. 結果の出力
		if err := writeOutput(cmd.OutOrStdout(), checkFlags.output, res.CSV); err != nil {
			return err
		}
		printSummary(cmd.ErrOrStderr(), res.Report, len(urls), checkFlags.output)
		return nil
	},
}

// checkConfig は読み込み済みの設定に、明示的に指定された --concurrency のみを上書きします。
func checkConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := app.cfg
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency = checkFlags.concurrency
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("設定エラー: %w", err)
	}
	return cfg, nil
}

// collectURLs は 引数 → --urls → --feed → 標準入力 の優先順でURLを集めます。
func collectURLs(ctx context.Context, stdin io.Reader, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if checkFlags.urls != "" {
		return splitURLList(checkFlags.urls), nil
	}
	if checkFlags.feedURL != "" {
		feedURL, err := ensureScheme(checkFlags.feedURL)
		if err != nil {
			return nil, fmt.Errorf("フィードURLの処理エラー: %w", err)
		}
		client := httpkit.New(feedTimeout, httpkit.WithMaxRetries(feedMaxRetries))
		links, err := feed.NewParser(client).FetchLinks(ctx, feedURL)
		if err != nil {
			return nil, fmt.Errorf("フィードからURLを取得できませんでした: %w", err)
		}
		app.logger.Info().Str("feed", feedURL).Int("count", len(links)).Msg("フィードからURLを取得しました")
		return links, nil
	}

	app.logger.Info().Msg("URLが指定されていないため、標準入力からURLを読み込みます (Ctrl+DまたはEOFで終了)...")
	b, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("標準入力の読み取りエラー: %w", err)
	}
	return pipeline.ParseURLs(string(b)), nil
}

// writeOutput はCSVを path に書き込みます。path が "-" の場合は stdout へ出力します。
func writeOutput(stdout io.Writer, path string, csv []byte) error {
	if path == "-" {
		_, err := stdout.Write(csv)
		return err
	}
	if err := os.WriteFile(path, csv, 0o644); err != nil {
		return fmt.Errorf("CSVファイルの書き込みエラー (%s): %w", path, err)
	}
	return nil
}

func printSummary(w io.Writer, r *types.BatchReport, requested int, path string) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintln(w, "--- リンクチェック結果 ---")
	fmt.Fprintf(w, "有効: %s 件, 無効: %s 件, 本文あり: %s 件\n",
		green(r.ValidCount()), red(r.InvalidCount()), cyan(r.WithArticleCount()))
	if skipped := requested - r.Processed(); skipped > 0 {
		fmt.Fprintf(w, "%s\n", color.YellowString("上限 %d 件を超えた %d 件のURLは処理されませんでした", checker.MaxURLs, skipped))
	}
	if path != "-" {
		fmt.Fprintf(w, "出力: %s\n", path)
	}
}

func init() {
	checkCmd.Flags().StringVarP(&checkFlags.urls, "urls", "u", "",
		"チェック対象のカンマ区切りURLリスト (例: url1,url2,url3)")
	checkCmd.Flags().StringVarP(&checkFlags.feedURL, "feed", "f", "",
		"チェック対象の記事リンクを含む RSS/Atom フィードのURL")
	checkCmd.Flags().StringVarP(&checkFlags.output, "output", "o", report.FileName,
		"CSVの出力先 (\"-\" で標準出力)")
	checkCmd.Flags().IntVarP(&checkFlags.concurrency, "concurrency", "c",
		checker.DefaultMaxConcurrency,
		"最大同時フェッチ数 (環境変数 CONCURRENCY)")
}
