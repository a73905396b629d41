package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/metalagman/reqgate/internal/db"
	"github.com/metalagman/reqgate/internal/guardrail"
	"github.com/metalagman/reqgate/internal/llm"
	"github.com/metalagman/reqgate/internal/rubric"
	"github.com/metalagman/reqgate/internal/settings"
	"github.com/metalagman/reqgate/internal/workflow"
)

func openDB(s settings.Settings) (*sql.DB, func(), error) {
	path := s.DBPath
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, func() {}, err
		}
	}
	storeDB, err := db.Open(path)
	if err != nil {
		return nil, func() {}, err
	}
	return storeDB, func() { _ = storeDB.Close() }, nil
}

func buildWorkflow(ctx context.Context, s settings.Settings, cfg workflow.Config) (*workflow.Workflow, error) {
	gateway, err := llm.Default(ctx)
	if err != nil {
		return nil, err
	}
	guard, err := guardrail.Get(s.GuardrailFilePath)
	if err != nil {
		return nil, err
	}
	models := append([]string{s.LLMModel}, s.FallbackModelsList()...)
	return workflow.New(cfg, workflow.Deps{
		Gateway:   gateway,
		Rubric:    rubric.Default(s.RubricFilePath),
		Guardrail: guard,
		Models:    models,
	})
}
