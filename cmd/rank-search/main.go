// Package main provides the rank-search binary: the HTTP server plus
// client, evaluation, and benchmark commands.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rankstack/rank-search/internal/benchmark"
	"github.com/rankstack/rank-search/internal/client"
	"github.com/rankstack/rank-search/internal/config"
	"github.com/rankstack/rank-search/internal/eval"
	"github.com/rankstack/rank-search/internal/index"
	"github.com/rankstack/rank-search/internal/pipeline"
	"github.com/rankstack/rank-search/internal/pkg/logger"
	"github.com/rankstack/rank-search/internal/retrieve/dense/hnsw"
	"github.com/rankstack/rank-search/internal/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rank-search",
		Short: "Hybrid lexical and vector document search",
		Long: `rank-search is a hybrid search engine combining BM25, dense and
learned sparse retrieval with rank fusion and late-interaction
reranking.

Run 'rank-search serve' to start the server.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "server URL for client commands")
	rootCmd.PersistentFlags().String("api-key", "", "API key for client commands")

	rootCmd.AddCommand(
		serveCmd(),
		corpusCmd(),
		indexCmd(),
		searchCmd(),
		evalCmd(),
		benchCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *logger.Logger {
	level := cfg.Log.Level
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	return logger.New(level, cfg.Log.Format)
}

func newClient(cmd *cobra.Command) *client.Client {
	cfg := client.DefaultConfig()
	cfg.BaseURL, _ = cmd.Flags().GetString("server")
	cfg.APIKey, _ = cmd.Flags().GetString("api-key")
	return client.New(cfg)
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the rank-search server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			appCfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if cmd.Flags().Changed("port") {
				appCfg.Port, _ = cmd.Flags().GetInt("port")
			}
			if cmd.Flags().Changed("host") {
				appCfg.Host, _ = cmd.Flags().GetString("host")
			}
			if qdrantURL, _ := cmd.Flags().GetString("qdrant"); qdrantURL != "" {
				appCfg.Qdrant.Enabled = true
				appCfg.Qdrant.URL = qdrantURL
			}

			log := newLogger(cmd, appCfg)
			log.Info("starting rank-search", "version", version, "port", appCfg.Port)

			srvCfg := server.DefaultConfig()
			srvCfg.Host = appCfg.Host
			srvCfg.Port = appCfg.Port
			srvCfg.Version = version

			srv, err := server.New(srvCfg, appCfg, log)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				log.Info("received signal", "signal", sig.String())
			}
			return srv.Stop(context.Background())
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "HTTP server port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP server host")
	cmd.Flags().String("qdrant", "", "Qdrant URL (enables mirroring)")
	return cmd
}

func corpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Manage corpora on a running server",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List corpora",
		RunE: func(cmd *cobra.Command, _ []string) error {
			corpora, err := newClient(cmd).ListCorpora(cmd.Context())
			if err != nil {
				return err
			}
			if len(corpora) == 0 {
				fmt.Println("no corpora")
				return nil
			}
			for _, c := range corpora {
				fmt.Printf("%-24s %d documents\n", c.Name, c.Documents)
			}
			return nil
		},
	})

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dim, _ := cmd.Flags().GetInt("vector-dim")
			info, err := newClient(cmd).CreateCorpus(cmd.Context(), args[0], dim)
			if err != nil {
				return err
			}
			fmt.Printf("created corpus %s", info.Name)
			if info.Recovered > 0 {
				fmt.Printf(" (%d documents recovered)", info.Recovered)
			}
			fmt.Println()
			return nil
		},
	}
	createCmd.Flags().Int("vector-dim", 0, "dense vector dimension for mirrored storage")
	cmd.AddCommand(createCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient(cmd).DeleteCorpus(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted corpus %s\n", args[0])
			return nil
		},
	})

	return cmd
}

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <corpus> <file.jsonl>",
		Short: "Index documents from a JSONL file",
		Long: `Index documents into a corpus on a running server.

The input file holds one JSON document per line:
  {"id": "doc-1", "content": "...", "embedding": [...], "sparse_vector": {...}}`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			corpus, path := args[0], args[1]
			batchSize, _ := cmd.Flags().GetInt("batch-size")

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			c := newClient(cmd)
			start := time.Now()
			totalIndexed, totalFailed := 0, 0

			flush := func(batch []*index.Document) error {
				if len(batch) == 0 {
					return nil
				}
				result, err := c.Ingest(cmd.Context(), corpus, batch)
				if err != nil {
					return err
				}
				totalIndexed += result.Indexed
				totalFailed += result.Failed
				for _, e := range result.Errors {
					fmt.Fprintln(os.Stderr, "rejected:", e)
				}
				return nil
			}

			var batch []*index.Document
			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 0, 1<<20), 16<<20)
			line := 0
			for scanner.Scan() {
				line++
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					continue
				}
				var doc index.Document
				if err := json.Unmarshal([]byte(text), &doc); err != nil {
					return fmt.Errorf("line %d: %w", line, err)
				}
				batch = append(batch, &doc)
				if len(batch) >= batchSize {
					if err := flush(batch); err != nil {
						return err
					}
					batch = batch[:0]
				}
			}
			if err := scanner.Err(); err != nil {
				return err
			}
			if err := flush(batch); err != nil {
				return err
			}

			fmt.Printf("indexed %d documents (%d failed) in %s\n",
				totalIndexed, totalFailed, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().Int("batch-size", 100, "documents per request")
	return cmd
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <corpus> <query>",
		Short: "Search a corpus on a running server",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			corpus := args[0]
			query := strings.Join(args[1:], " ")
			topK, _ := cmd.Flags().GetInt("top-k")
			fusion, _ := cmd.Flags().GetString("fusion")
			asJSON, _ := cmd.Flags().GetBool("json")

			resp, err := newClient(cmd).Search(cmd.Context(), corpus, pipeline.Request{
				Query:  query,
				TopK:   topK,
				Fusion: fusion,
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			fmt.Printf("%d results in %dms (%s)\n\n",
				resp.Total, resp.Metadata.SearchTimeMs, resp.Metadata.FusionMethod)
			for i, r := range resp.Results {
				fmt.Printf("%2d. %-32s %.4f\n", i+1, r.ID, r.Score)
				if content := firstLine(r.Content); content != "" {
					fmt.Printf("    %s\n", content)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntP("top-k", "k", 10, "number of results")
	cmd.Flags().String("fusion", "", "fusion method override")
	cmd.Flags().Bool("json", false, "print the raw JSON response")
	return cmd
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 100 {
		s = s[:100] + "…"
	}
	return s
}

func evalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <qrels> <run>",
		Short: "Evaluate a TREC run file against relevance judgments",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, _ := cmd.Flags().GetInt("threshold")
			ks, _ := cmd.Flags().GetIntSlice("k")

			qrelsFile, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer qrelsFile.Close()
			qrels, err := eval.ParseQrels(qrelsFile)
			if err != nil {
				return err
			}

			runFile, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer runFile.Close()
			entries, err := eval.ParseRun(runFile)
			if err != nil {
				return err
			}

			evaluator := eval.NewEvaluator(threshold)
			evaluator.LoadQrels(qrels)
			results := evaluator.EvaluateRun(entries, ks)
			summary := evaluator.Summarize(results)

			fmt.Printf("queries: %d\n", summary.QueryCount)
			for _, k := range ks {
				fmt.Printf("ndcg@%-4d %.4f   recall@%-4d %.4f   p@%-4d %.4f\n",
					k, summary.MeanNDCG[k], k, summary.MeanRecall[k], k, summary.MeanPrecision[k])
			}
			fmt.Printf("mrr:  %.4f\n", summary.MeanMRR)
			fmt.Printf("map:  %.4f\n", summary.MAP)
			fmt.Printf("err:  %.4f\n", summary.MeanERR)
			return nil
		},
	}
	cmd.Flags().Int("threshold", 1, "minimum grade counted as relevant")
	cmd.Flags().IntSlice("k", []int{5, 10, 100}, "cutoffs to evaluate")
	return cmd
}

func benchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark ANN indexes on synthetic datasets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			vectors, _ := cmd.Flags().GetInt("vectors")
			dim, _ := cmd.Flags().GetInt("dim")
			clusters, _ := cmd.Flags().GetInt("clusters")
			seed, _ := cmd.Flags().GetInt64("seed")
			ks, _ := cmd.Flags().GetIntSlice("k")
			format, _ := cmd.Flags().GetString("report")
			efSearch, _ := cmd.Flags().GetInt("ef-search")

			log := logger.New("info", "text")
			runner := benchmark.NewRunner(log)
			runner.SetKValues(ks)

			uniform := benchmark.NewDataset(benchmark.GenerateUniform(vectors, dim, seed), dim)
			runner.AddDataset("uniform", uniform)
			if clusters > 0 {
				clustered := benchmark.NewDataset(
					benchmark.GenerateClustered(vectors, dim, clusters, seed), dim)
				runner.AddDataset("clustered", clustered)
			}

			ctx := cmd.Context()
			if err := runner.PrecomputeGroundTruth(ctx); err != nil {
				return err
			}

			datasets := []string{"uniform"}
			if clusters > 0 {
				datasets = append(datasets, "clustered")
			}

			var results []benchmark.Result
			for _, ds := range datasets {
				flat, err := runner.RunAlgorithm(ctx, "flat", benchmark.NewFlatIndex(), ds)
				if err != nil {
					return err
				}
				results = append(results, flat...)

				hnswIdx, err := benchmark.NewHNSWIndex(dim, hnsw.DefaultParams(), efSearch)
				if err != nil {
					return err
				}
				hnswResults, err := runner.RunAlgorithm(ctx, "hnsw", hnswIdx, ds)
				if err != nil {
					return err
				}
				results = append(results, hnswResults...)
			}

			switch format {
			case "markdown":
				fmt.Print(benchmark.MarkdownReport(results))
			case "csv":
				fmt.Print(benchmark.CSVReport(results))
			case "json":
				data, err := benchmark.JSONReport(results)
				if err != nil {
					return err
				}
				fmt.Println(string(data))
			default:
				return fmt.Errorf("unknown report format %q", format)
			}
			return nil
		},
	}
	cmd.Flags().Int("vectors", 10000, "number of vectors per dataset")
	cmd.Flags().Int("dim", 128, "vector dimension")
	cmd.Flags().Int("clusters", 16, "clusters for the Gaussian dataset (0 disables)")
	cmd.Flags().Int64("seed", 42, "random seed")
	cmd.Flags().IntSlice("k", []int{10, 100}, "k values to measure")
	cmd.Flags().Int("ef-search", 100, "HNSW search candidate pool")
	cmd.Flags().String("report", "markdown", "report format (markdown, csv, json)")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("rank-search %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}
