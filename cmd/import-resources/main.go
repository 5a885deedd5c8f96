package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/josinaldojr/finlit-quiz/internal/app"
	"github.com/josinaldojr/finlit-quiz/internal/config"
	"github.com/josinaldojr/finlit-quiz/internal/ingest"
	"github.com/josinaldojr/finlit-quiz/internal/resource"
)

func main() {
	namespaceFlag := flag.String("namespace", "", "resource namespace (defaults to RESOURCE_NAMESPACE)")
	fromFiles := flag.Bool("from-files", false, "import local documents (.md/.txt/.html/.pdf)")
	pathFlag := flag.String("path", "", "base directory for local documents")
	fromURL := flag.Bool("from-url", false, "import by crawling a site")
	baseURLFlag := flag.String("base-url", "", "base URL to crawl")
	maxPagesFlag := flag.Int("max-pages", 50, "page limit for the crawl")
	watchFlag := flag.Bool("watch", false, "keep running and re-import files under -path when they change")
	flag.Parse()

	if !*fromFiles && !*fromURL && !*watchFlag {
		log.Fatal("use at least one mode: -from-files, -from-url or -watch")
	}
	if (*fromFiles || *watchFlag) && *pathFlag == "" {
		log.Fatal("-path is required with -from-files and -watch")
	}
	if *fromURL && *baseURLFlag == "" {
		log.Fatal("-base-url is required with -from-url")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if cfg.Resources.IndexURL == "" {
		log.Fatal("RESOURCE_INDEX_URL is required to import resources")
	}

	store, err := resource.OpenStore(ctx, cfg.Resources.IndexURL, cfg.Resources.Dimensions)
	if err != nil {
		log.Fatalf("failed to open resource index: %v", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("failed to prepare resource index: %v", err)
	}

	embedder, err := app.NewEmbedder(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init embedder: %v", err)
	}

	namespace := *namespaceFlag
	if namespace == "" {
		namespace = cfg.Resources.Namespace
	}
	im := ingest.NewImporter(store, embedder, namespace)

	if *fromFiles {
		n, err := im.ImportFiles(ctx, *pathFlag)
		if err != nil {
			log.Fatalf("importing files: %v", err)
		}
		log.Printf("imported %d records from %s", n, *pathFlag)
	}

	if *fromURL {
		n, err := im.ImportURL(ctx, *baseURLFlag, *maxPagesFlag)
		if err != nil {
			log.Fatalf("importing from %s: %v", *baseURLFlag, err)
		}
		log.Printf("imported %d records from %s", n, *baseURLFlag)
	}

	if count, err := store.Count(ctx, im.Namespace()); err == nil {
		log.Printf("namespace %s now holds %d records", im.Namespace(), count)
	}

	if *watchFlag {
		if err := im.Watch(ctx, *pathFlag); err != nil {
			log.Fatalf("watch: %v", err)
		}
	}

	log.Println("import finished")
}
