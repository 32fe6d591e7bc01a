package app

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"smatact/go_backend/internal/app/config"
	apphttp "smatact/go_backend/internal/app/http"
	"smatact/go_backend/internal/app/http/handlers"
	"smatact/go_backend/internal/domain/quotation"
	"smatact/go_backend/internal/domain/quotation/delivery"
	"smatact/go_backend/internal/domain/quotation/gen"
	pdfgen "smatact/go_backend/internal/domain/quotation/pdf/gofpdf"
	"smatact/go_backend/internal/domain/quotation/signature"
	"smatact/go_backend/internal/infra/db/postgres"
	"smatact/go_backend/internal/infra/logger"
)

func Run() {
	cfg := config.MustLoad()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := postgres.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db", zap.Error(err))
	}
	defer db.Close()

	required := pdfgen.RequiredLatin
	if cfg.FontRegular != "" {
		required = pdfgen.RequiredKorean
	}
	fonts := pdfgen.NewFontRegistry(cfg.FontRegular, cfg.FontBold, required)
	if err := fonts.Register(); err != nil {
		log.Fatal("font registration", zap.Error(err))
	}
	renderer := pdfgen.New(fonts)

	draftGen := &gen.Client{
		BaseURL: cfg.OpenAIBaseURL,
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		HTTP:    &http.Client{Timeout: cfg.GenTimeout + 5*time.Second},
		Retries: cfg.GenRetries,
		Backoff: cfg.GenBackoff,
		Timeout: cfg.GenTimeout,
		Log:     log,
	}

	transport, err := delivery.NewSMTPTransport(
		cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword,
		cfg.SMTPFrom, cfg.CompanyName)
	if err != nil {
		log.Fatal("smtp transport", zap.Error(err))
	}
	dispatcher := delivery.New(transport, cfg.SendRetries, cfg.SendBackoff, log)

	svc := quotation.NewService(
		postgres.NewQuotationRepository(db),
		renderer,
		draftGen,
		dispatcher,
		signature.New(),
		quotation.ServiceConfig{
			Company: quotation.Company{
				Name:    cfg.CompanyName,
				Phone:   cfg.CompanyPhone,
				Address: cfg.CompanyAddress,
			},
			VATRateBP: cfg.VATRateBP,
			Validity:  time.Duration(cfg.ValidityDays) * 24 * time.Hour,
		},
		log,
		quotation.WithEmailDrafter(draftGen),
	)

	h := handlers.New(svc, log)
	router := apphttp.NewRouter(h, cfg.InternalToken, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("listening", zap.String("addr", cfg.HTTPAddr))
	log.Fatal("server", zap.Error(srv.ListenAndServe()))
}
