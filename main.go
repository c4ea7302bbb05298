package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"

	"newsblog/pkg/bootstrap"
	"newsblog/pkg/config"
	"newsblog/pkg/domain"
	"newsblog/pkg/logging"
	"newsblog/pkg/newsblog"
)

const usage = `usage: newsblog [flags] <command> [args]

commands:
  months                  archive month counts of -ns
  authors                 authors of -ns by article count
  tags                    tags of -ns by article count
  published               published articles of every namespace
  articles                published articles of -ns (see -author, -tag, -year, -month, -day, -q)
  adjacent <id>           previous and next published article around <id> in -ns
  publish <id>...         mark articles published
  unpublish <id>...       mark articles unpublished
  feature <id>...         mark articles featured
  unfeature <id>...       mark articles not featured

flags:
`

type options struct {
	namespace string
	scope     string
	author    string
	tag       string
	query     string
	year      int
	month     int
	day       int
	page      int
	size      int
}

func main() {
	var (
		configPath = flag.String("config", "", "Config file path (default: $CONFIG_PATH or ./newsblog.yaml)")
		opts       options
	)
	flag.StringVar(&opts.namespace, "ns", "", "Namespace (blog instance)")
	flag.StringVar(&opts.scope, "scope", "", "Archive scope override: all or published")
	flag.StringVar(&opts.author, "author", "", "Author slug filter for articles")
	flag.StringVar(&opts.tag, "tag", "", "Tag slug filter for articles")
	flag.StringVar(&opts.query, "q", "", "Title/lead-in search for articles")
	flag.IntVar(&opts.year, "year", 0, "Year filter for articles")
	flag.IntVar(&opts.month, "month", 0, "Month filter for articles (needs -year)")
	flag.IntVar(&opts.day, "day", 0, "Day filter for articles (needs -year and -month)")
	flag.IntVar(&opts.page, "page", 1, "Page number for articles")
	flag.IntVar(&opts.size, "size", 0, "Page size for articles (default from config)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	bootstrap.InitLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.scope != "" {
		cfg.Blog.ArchiveScope = opts.scope
	}

	start := time.Now()
	if err := execute(ctx, cfg, opts, flag.Arg(0), flag.Args()[1:], os.Stdout, bootstrap.Open); err != nil {
		logging.Error().Err(err).Str("command", flag.Arg(0)).Msg("command failed")
		os.Exit(1)
	}
	logging.Debug().Str("command", flag.Arg(0)).Dur("took", time.Since(start)).Msg("done")
}

type openFunc func(ctx context.Context, cfg config.StorageConfig) (newsblog.Repository, bootstrap.CloseFunc, error)

// execute runs one command against the configured storage and writes its result
// to out. The storage is closed before execute returns, on every path.
func execute(ctx context.Context, cfg *config.Config, opts options, command string, args []string, out io.Writer, open openFunc) error {
	repo, closeRepo, err := open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := closeRepo(); err != nil {
			logging.Warn().Err(err).Msg("failed to close storage")
		}
	}()

	svc, err := bootstrap.NewService(cfg.Blog, repo)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	result, err := run(ctx, svc, opts, command, args)
	if err != nil {
		return err
	}
	if err := writeJSON(out, result); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func run(ctx context.Context, svc *newsblog.Service, opts options, command string, args []string) (any, error) {
	needNamespace := func() error {
		if opts.namespace == "" {
			return fmt.Errorf("%s needs -ns", command)
		}
		return nil
	}

	switch command {
	case "months":
		if err := needNamespace(); err != nil {
			return nil, err
		}
		return svc.Months(ctx, opts.namespace)

	case "authors":
		if err := needNamespace(); err != nil {
			return nil, err
		}
		return svc.Authors(ctx, opts.namespace)

	case "tags":
		if err := needNamespace(); err != nil {
			return nil, err
		}
		return svc.Tags(ctx, opts.namespace)

	case "published":
		return svc.Published(ctx)

	case "articles":
		if err := needNamespace(); err != nil {
			return nil, err
		}
		return listArticles(ctx, svc, opts)

	case "adjacent":
		if err := needNamespace(); err != nil {
			return nil, err
		}
		if len(args) != 1 {
			return nil, fmt.Errorf("adjacent needs exactly one article id")
		}
		article, err := svc.Article(ctx, opts.namespace, args[0])
		if err != nil {
			return nil, err
		}
		prev, next, err := svc.Adjacent(ctx, article)
		if err != nil {
			return nil, err
		}
		return map[string]*domain.Article{"previous": prev, "next": next}, nil

	case "publish", "unpublish", "feature", "unfeature":
		return setFlag(ctx, svc, command, args)

	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

func listArticles(ctx context.Context, svc *newsblog.Service, opts options) ([]domain.Article, error) {
	page := newsblog.Page{Number: opts.page, Size: opts.size}
	switch {
	case opts.query != "":
		return svc.Search(ctx, opts.namespace, opts.query, opts.size)
	case opts.author != "":
		return svc.ByAuthor(ctx, opts.namespace, opts.author, page)
	case opts.tag != "":
		return svc.ByTag(ctx, opts.namespace, opts.tag, page)
	case opts.year != 0 && opts.month != 0 && opts.day != 0:
		return svc.ByDay(ctx, opts.namespace, opts.year, time.Month(opts.month), opts.day, page)
	case opts.year != 0 && opts.month != 0:
		return svc.ByMonth(ctx, opts.namespace, opts.year, time.Month(opts.month), page)
	case opts.year != 0:
		return svc.ByYear(ctx, opts.namespace, opts.year, page)
	default:
		filter := domain.ArticleFilter{Namespace: opts.namespace, Limit: opts.size}
		if opts.size > 0 && opts.page > 1 {
			filter.Offset = (opts.page - 1) * opts.size
		}
		return svc.Articles(ctx, filter)
	}
}

func setFlag(ctx context.Context, svc *newsblog.Service, command string, ids []string) (map[string]int64, error) {
	ids = splitIDs(ids)
	var (
		n   int64
		err error
	)
	switch command {
	case "publish":
		n, err = svc.Publish(ctx, ids)
	case "unpublish":
		n, err = svc.Unpublish(ctx, ids)
	case "feature":
		n, err = svc.Feature(ctx, ids)
	case "unfeature":
		n, err = svc.Unfeature(ctx, ids)
	}
	if err != nil {
		return nil, err
	}
	return map[string]int64{"updated": n}, nil
}

// splitIDs accepts both "a b" and "a,b".
func splitIDs(args []string) []string {
	var ids []string
	for _, arg := range args {
		for _, id := range strings.Split(arg, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
