package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"coachai/internal/gateway/config"
	"coachai/internal/gateway/handler"
	"coachai/internal/gateway/server"
	"coachai/internal/gateway/service/analysis"
	"coachai/internal/gateway/service/files"
	"coachai/internal/gateway/service/instruction"
	"coachai/internal/gateway/service/users"
	"coachai/internal/workflow"
)

type App struct {
	cfg    *config.Config
	server *server.Server
	stores *gatewayStores
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(context.Background(), cfg)
}

func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	// Dependencies
	stores, err := initStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	caller, err := newWorkflowCaller(cfg.Workflow)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}

	filesSvc := files.New(stores.objects, files.Config{
		Paths: files.Paths{
			Images:    cfg.Storage.Paths.Images,
			Documents: cfg.Storage.Paths.Documents,
			Temp:      cfg.Storage.Paths.Temp,
		},
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
	})
	poseSvc := analysis.NewPoseService(stores.records, caller, workflow.Flow{
		Name:      "pose",
		APICode:   cfg.Workflow.Pose.APICode,
		AccessKey: cfg.Workflow.Pose.AccessKey,
	}, filesSvc)
	issueSvc := analysis.NewIssueService(stores.records, caller, workflow.Flow{
		Name:      "issue",
		APICode:   cfg.Workflow.Issue.APICode,
		AccessKey: cfg.Workflow.Issue.AccessKey,
	})

	usersSvc := users.New(stores.users)

	// Routing & Server
	mux := server.NewMux(server.Handlers{
		Pose:     handler.NewPoseHandler(poseSvc, stores.objects),
		Issue:    handler.NewIssueHandler(issueSvc),
		Data:     handler.NewDataHandler(instruction.New()),
		Files:    handler.NewFilesHandler(filesSvc),
		Users:    handler.NewUsersHandler(usersSvc),
		Accounts: handler.NewAccountsHandler(usersSvc),
	})
	return &App{
		cfg:    cfg,
		server: server.New(cfg.Port, mux),
		stores: stores,
	}, nil
}

// errWorkflowUnconfigured is returned by analyze calls when no workflow
// endpoint is set; the rest of the gateway keeps serving.
var errWorkflowUnconfigured = errors.New("workflow base url is not configured")

type unconfiguredCaller struct{}

func (unconfiguredCaller) Call(context.Context, workflow.Flow, any) (*workflow.Envelope, error) {
	return nil, errWorkflowUnconfigured
}

func newWorkflowCaller(cfg config.WorkflowConfig) (workflow.Caller, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		log.Printf("workflow: WORKFLOW_BASE_URL not set, analyze routes will fail")
		return unconfiguredCaller{}, nil
	}
	client, err := workflow.NewClient(workflow.ClientConfig{
		BaseURL:        cfg.BaseURL,
		ConnectTimeout: cfg.ConnectTimeout,
		ReadTimeout:    cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize workflow client: %w", err)
	}
	return client, nil
}

func (a *App) Config() *config.Config { return a.cfg }

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.stores.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
