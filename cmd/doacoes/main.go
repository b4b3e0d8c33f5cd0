package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"doacoes/internal"
	"doacoes/internal/auth"
	"doacoes/internal/catalog"
	"doacoes/internal/config"
	"doacoes/internal/connectors"
	"doacoes/internal/donations"
	"doacoes/internal/listener"
	"doacoes/internal/logger"
	"doacoes/internal/objectstore"
	"doacoes/internal/pexels"
	"doacoes/internal/photos"
	"doacoes/internal/receipts"
	"doacoes/internal/storage"
	"doacoes/internal/util"
)

type app struct {
	cfg       config.Config
	log       *zap.Logger
	db        *storage.DB
	store     objectstore.Store
	catalog   *catalog.Service
	donations *donations.Service
}

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	must(err)
	defer func() { _ = log.Sync() }()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx := context.Background()
	store, err := objectstore.New(ctx, cfg)
	must(err)

	checker := auth.ContextChecker{}
	a := &app{
		cfg:       cfg,
		log:       log,
		db:        db,
		store:     store,
		catalog:   catalog.NewService(db, checker, log),
		donations: donations.NewService(db, store, checker, log),
	}

	cmd := os.Args[1]
	args := os.Args[2:]
	switch cmd {
	case "categories:list":
		categories, err := a.catalog.ListCategories()
		must(err)
		for _, c := range categories {
			fmt.Printf("%s\t%s\n", c.ID, c.Name)
		}
	case "categories:create":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		name := fs.String("name", "", "category name")
		_ = fs.Parse(args)
		c, err := a.catalog.CreateCategory(a.admin(ctx), *name)
		must(err)
		fmt.Printf("category created id=%s name=%s\n", c.ID, c.Name)
	case "categories:rename":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "category id")
		name := fs.String("name", "", "new name")
		_ = fs.Parse(args)
		must(a.catalog.RenameCategory(a.admin(ctx), *id, *name))
		fmt.Printf("category renamed id=%s\n", *id)
	case "categories:delete":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "category id")
		_ = fs.Parse(args)
		must(a.catalog.DeleteCategory(a.admin(ctx), *id))
		fmt.Printf("category deleted id=%s\n", *id)
	case "products:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		published := fs.Bool("published", false, "only published products")
		category := fs.String("category", "", "filter by category id")
		_ = fs.Parse(args)
		var products []internal.Product
		if strings.TrimSpace(*category) != "" {
			products, err = a.catalog.ListProductsByCategory(*category, *published)
		} else {
			products, err = a.catalog.ListProducts(*published)
		}
		must(err)
		for _, p := range products {
			fmt.Println(describeProduct(p))
		}
	case "products:publish":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "product id")
		unpublish := fs.Bool("unpublish", false, "hide the product instead")
		_ = fs.Parse(args)
		must(a.catalog.SetPublished(a.admin(ctx), *id, !*unpublish))
		fmt.Printf("product id=%s published=%v\n", *id, !*unpublish)
	case "products:delete":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "product id")
		_ = fs.Parse(args)
		must(a.catalog.DeleteProduct(a.admin(ctx), *id))
		fmt.Printf("product deleted id=%s\n", *id)
	case "import:parse":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "csv or xlsx file")
		_ = fs.Parse(args)
		items, err := readImportFile(*file)
		must(err)
		printItems(items)
	case "import:run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		opts := importOptions{}
		fs.StringVar(&opts.file, "file", "", "csv or xlsx file")
		fs.IntVar(&opts.perPage, "per-page", cfg.PexelsPerPage, "photo candidates per item")
		fs.StringVar(&opts.report, "report", "", "results xlsx path")
		_ = fs.Parse(args)
		must(a.runImport(a.admin(ctx), opts))
	case "import:runs":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 10, "max runs")
		_ = fs.Parse(args)
		runs, err := db.ListImportRuns(*limit)
		must(err)
		for _, r := range runs {
			fmt.Printf("%s\t%s\ttotal=%d ok=%d failed=%d report=%s\n", r.ID, r.CreatedAt, r.Total, r.Succeeded, r.Failed, util.Deref(r.ReportPath))
		}
	case "photos:search":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		query := fs.String("query", "", "search text")
		perPage := fs.Int("per-page", cfg.PexelsPerPage, "results")
		_ = fs.Parse(args)
		gateway, err := a.photoGateway()
		must(err)
		results, err := gateway.SearchPhotos(a.admin(ctx), *query, *perPage)
		must(err)
		for _, p := range results {
			fmt.Printf("%d\t%s\t%s\t%s\n", p.ID, p.SrcLarge, p.Photographer, p.Alt)
		}
	case "donations:monetary":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		product := fs.String("product", "", "product id")
		amount := fs.String("amount", "", "amount in reais, e.g. 50.00")
		name := fs.String("name", "", "donor name")
		receiptPath := fs.String("receipt-path", "", "stored receipt path")
		receiptFile := fs.String("receipt-file", "", "receipt file to upload")
		_ = fs.Parse(args)
		cents, ok := util.ParseAmountCents(*amount)
		if !ok {
			must(fmt.Errorf("--amount must be a positive number"))
		}
		path := *receiptPath
		if strings.TrimSpace(*receiptFile) != "" {
			path, err = a.upload(ctx, objectstore.BucketReceipts, *receiptFile)
			must(err)
		}
		id, err := a.donations.CreateMonetaryDonation(ctx, donations.MonetaryInput{
			ProductID: *product, Amount: cents, DonorName: *name, ReceiptPath: path,
		})
		must(err)
		fmt.Printf("donation recorded id=%s amount=%s\n", id, util.FormatBRL(cents))
	case "donations:pledge":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		product := fs.String("product", "", "product id")
		name := fs.String("name", "", "donor name")
		phone := fs.String("phone", "", "donor phone")
		email := fs.String("email", "", "donor email")
		_ = fs.Parse(args)
		id, err := a.donations.CreatePhysicalPledge(ctx, donations.PledgeInput{
			ProductID: *product, DonorName: *name, DonorPhone: *phone, DonorEmail: *email,
		})
		must(err)
		fmt.Printf("pledge recorded id=%s\n", id)
	case "pix:show":
		s, err := a.donations.GetPixSettings()
		must(err)
		fmt.Printf("qr=%s\ncopia_e_cola=%s\nupdated=%s\n", util.Deref(s.QRCodeImagePath), util.Deref(s.CopiaECola), s.UpdatedAt)
	case "pix:set":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		qrFile := fs.String("qr-file", "", "QR code image to upload")
		code := fs.String("copia-e-cola", "", "PIX copia e cola code")
		_ = fs.Parse(args)
		admin := a.admin(ctx)
		in := donations.PixInput{CopiaECola: util.NonEmpty(*code)}
		if strings.TrimSpace(*qrFile) != "" {
			path, err := a.upload(admin, objectstore.BucketPixQR, *qrFile)
			must(err)
			in.QRCodeImagePath = &path
		}
		must(a.donations.UpdatePixSettings(admin, in))
		fmt.Println("pix settings updated")
	case "dashboard":
		stats, err := a.donations.DashboardStats(a.admin(ctx))
		must(err)
		fmt.Printf("arrecadado=%s fisicos_atendidos=%d fisicos_pendentes=%d publicados=%d\n",
			util.FormatBRL(stats.TotalMonetary), stats.PhysicalFulfilled, stats.PhysicalPending, stats.PublishedCount)
	case "receipts:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.ReceiptListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.ReceiptListenerLabel, "mailbox/label")
		fetchMax := fs.Int("max", cfg.ReceiptListenerFetchMax, "max messages")
		_ = fs.Parse(args)
		intake, err := a.receiptIntake(*provider)
		must(err)
		result, err := intake.FetchAndStore(ctx, *label, *fetchMax)
		must(err)
		fmt.Printf("receipt fetch done provider=%s fetched=%d stored=%d skipped=%d\n", *provider, result.Fetched, result.Stored, result.Skipped)
	case "receipts:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		status := fs.String("status", receipts.StatusPending, "pending|reconciled|ignored")
		limit := fs.Int("limit", 50, "max rows")
		_ = fs.Parse(args)
		rows, err := db.ListReceiptsByStatus(*status, *limit)
		must(err)
		for _, r := range rows {
			amount := "?"
			if r.DetectedAmount != nil {
				amount = util.FormatBRL(*r.DetectedAmount)
			}
			fmt.Printf("%d\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.ReceivedAt, r.Sender, amount, util.Deref(r.StoragePath), r.Subject)
		}
	case "receipts:reconcile":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.Int("id", 0, "receipt id")
		ignore := fs.Bool("ignore", false, "mark as ignored instead")
		_ = fs.Parse(args)
		status := receipts.StatusReconciled
		if *ignore {
			status = receipts.StatusIgnored
		}
		must(db.UpdateReceiptStatus(*id, status))
		fmt.Printf("receipt id=%d status=%s\n", *id, status)
	case "receipts:listen":
		intake, err := a.receiptIntake(cfg.ReceiptListenerProvider)
		must(err)
		listenCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer cancel()
		must(listener.NewService(intake, cfg, log).Run(listenCtx))
	default:
		usage()
		os.Exit(1)
	}
}

// admin logs the CLI operator in with DOACOES_USER / DOACOES_PASSWORD.
func (a *app) admin(ctx context.Context) context.Context {
	ctx, err := auth.NewAuthenticator(a.cfg).Login(ctx, a.cfg.SessionUsername, a.cfg.SessionPassword)
	if err != nil {
		must(fmt.Errorf("admin login failed: set DOACOES_USER and DOACOES_PASSWORD: %w", err))
	}
	return ctx
}

func (a *app) photoGateway() (*photos.Gateway, error) {
	if err := a.cfg.Require("PEXELS_API_KEY", a.cfg.PexelsAPIKey); err != nil {
		return nil, err
	}
	return photos.NewGateway(pexels.NewClient(a.cfg, a.log), a.store, auth.ContextChecker{}, a.cfg, a.log)
}

func (a *app) receiptIntake(provider string) (*receipts.Intake, error) {
	conn, err := connectors.New(a.cfg, provider)
	if err != nil {
		return nil, err
	}
	return receipts.NewIntake(a.db, conn, a.store, a.log), nil
}

func (a *app) upload(ctx context.Context, bucket, file string) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return a.donations.UploadReceipt(ctx, bucket, filepath.Base(file), data, "")
}

func describeProduct(p internal.Product) string {
	progress := "-"
	switch p.DonationType {
	case internal.DonationMonetary:
		target := util.Deref(p.TargetAmount)
		progress = fmt.Sprintf("%s / %s (%d%%)", util.FormatBRL(p.CurrentAmount), util.FormatBRL(target), util.ProgressPercent(p.CurrentAmount, target))
	case internal.DonationPhysical:
		progress = "pendente"
		if p.IsFulfilled {
			progress = "atendido"
		}
	}
	return fmt.Sprintf("%s\t%s\t%s\t%s\tpublicado=%v", p.ID, p.Name, p.DonationType, progress, p.IsPublished)
}

func usage() {
	fmt.Println("usage: doacoes <command>")
	fmt.Println("commands:")
	fmt.Println("  categories:list")
	fmt.Println("  categories:create --name=...")
	fmt.Println("  categories:rename --id=... --name=...")
	fmt.Println("  categories:delete --id=...")
	fmt.Println("  products:list [--published] [--category=id]")
	fmt.Println("  products:publish --id=... [--unpublish]")
	fmt.Println("  products:delete --id=...")
	fmt.Println("  import:parse --file=items.csv")
	fmt.Println("  import:run --file=items.csv [--per-page=3] [--report=out.xlsx]")
	fmt.Println("  import:runs [--limit=10]")
	fmt.Println("  photos:search --query=... [--per-page=3]")
	fmt.Println("  donations:monetary --product=id --amount=50.00 (--receipt-path=... | --receipt-file=...) [--name=...]")
	fmt.Println("  donations:pledge --product=id --name=... --phone=... [--email=...]")
	fmt.Println("  pix:show")
	fmt.Println("  pix:set [--qr-file=qr.png] [--copia-e-cola=...]")
	fmt.Println("  dashboard")
	fmt.Println("  receipts:fetch [--provider=gmail|imap] [--label=INBOX] [--max=20]")
	fmt.Println("  receipts:list [--status=pending] [--limit=50]")
	fmt.Println("  receipts:reconcile --id=1 [--ignore]")
	fmt.Println("  receipts:listen")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
