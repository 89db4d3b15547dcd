// Package main provides tests for the adega CLI.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Harley062/projeto-IA-Adega/internal/cli"
	"github.com/Harley062/projeto-IA-Adega/internal/testutil"
)

func TestVersionCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	err := cmd.Execute()
	if err != nil {
		t.Errorf("version command error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "adega") {
		t.Errorf("version output should contain 'adega', got: %s", output)
	}
}

func TestHelpCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	if err != nil {
		t.Errorf("help command error = %v", err)
	}

	output := buf.String()
	expectedCommands := []string{"train", "predict", "batch", "next-purchase", "recommend", "revenue", "history", "serve"}
	for _, expected := range expectedCommands {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, output)
		}
	}
}

func TestTrainAndPredict(t *testing.T) {
	dataDir := testutil.WriteTrainingSet(t)
	outDir := t.TempDir()
	common := []string{
		"--data-dir", dataDir,
		"--models-dir", filepath.Join(outDir, "models"),
		"--reports-dir", filepath.Join(outDir, "reports"),
		"--state", filepath.Join(outDir, "adega.db"),
		"--log-level", "error",
	}

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"train", "--models", "Decision Tree", "--cv-folds", "0", "-o", "text"}, common...))

	if err := cmd.Execute(); err != nil {
		t.Fatalf("train command error = %v\n%s", err, buf.String())
	}
	if !strings.Contains(buf.String(), "Decision Tree") {
		t.Errorf("train output should name the model, got: %s", buf.String())
	}

	cmd = cli.NewRootCmd()
	buf.Reset()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{
		"predict", "-o", "json",
		"--json", `{"customer_id": 3, "name": "Caio", "age": 40, "city": "Recife", "engagement_score": 2,
		  "subscription_flag": "Não", "value": 55, "quantity": 1, "country": "Chile", "grape_type": "Merlot"}`,
	}, common...))

	if err := cmd.Execute(); err != nil {
		t.Fatalf("predict command error = %v\n%s", err, buf.String())
	}
	if !strings.Contains(buf.String(), `"churn_probability"`) {
		t.Errorf("predict output should contain the probability, got: %s", buf.String())
	}
}

func TestInvalidConfig(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"revenue", "--output", "yaml"})

	if err := cmd.Execute(); err == nil {
		t.Error("invalid output format should return an error")
	}
}

func TestCompletionCommand(t *testing.T) {
	shells := []string{"bash", "zsh", "fish", "powershell"}

	for _, shell := range shells {
		t.Run(shell, func(t *testing.T) {
			cmd := cli.NewRootCmd()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs([]string{"completion", shell})

			err := cmd.Execute()
			if err != nil {
				t.Errorf("completion %s command error = %v", shell, err)
			}
			if buf.Len() == 0 {
				t.Errorf("completion %s produced no output", shell)
			}
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"unknown-command"})

	err := cmd.Execute()
	if err == nil {
		t.Error("unknown command should return an error")
	}
}

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}
