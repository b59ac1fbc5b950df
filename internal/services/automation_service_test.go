package services

import (
	"context"
	"strings"
	"testing"

	"github.com/akmatori/opsconsole/internal/database"
	"github.com/akmatori/opsconsole/internal/events"
	"github.com/akmatori/opsconsole/internal/models"
)

func TestAutomationService_ExecuteSuccess(t *testing.T) {
	ctx := context.Background()
	svc, rec := newTestServices(t)

	exec, err := svc.Automation.Execute(ctx, "usr-001", "pb-001", ExecuteRequest{Parameters: database.JSONB{"top_n": 3}})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if exec.Status != models.ExecutionStatusPending || exec.TriggeredBy != "Alex Chen" {
		t.Errorf("started = %+v", exec)
	}

	svc.Automation.Wait()
	done, err := svc.Automation.GetExecution(ctx, exec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != models.ExecutionStatusSuccess {
		t.Errorf("Status = %s, stderr = %q", done.Status, done.Stderr)
	}
	if done.ExitCode == nil || *done.ExitCode != 0 || done.FinishedAt == nil {
		t.Errorf("outcome = exit %v finished %v", done.ExitCode, done.FinishedAt)
	}
	if !strings.Contains(done.Stdout, "top_n=3") {
		t.Errorf("stdout should echo parameters: %q", done.Stdout)
	}

	script, _ := svc.Automation.GetScript(ctx, "pb-001")
	if script.LastExecutionAt == nil {
		t.Errorf("LastExecutionAt = %v", script.LastExecutionAt)
	}

	types := rec.types()
	if types[len(types)-1] != events.TypeFinished {
		t.Errorf("last event = %s, want finished", types[len(types)-1])
	}
}

func TestAutomationService_PublishesProgress(t *testing.T) {
	ctx := context.Background()
	svc, rec := newTestServices(t)

	exec, err := svc.Automation.Execute(ctx, "usr-001", "pb-001", ExecuteRequest{Parameters: database.JSONB{"top_n": 3}})
	if err != nil {
		t.Fatal(err)
	}
	svc.Automation.Wait()

	progress := 0
	for _, evt := range rec.forEntity(exec.ID) {
		running, ok := evt.Data.(*models.Execution)
		if evt.Type != events.TypeUpdated || !ok || running.Status != models.ExecutionStatusRunning {
			continue
		}
		if strings.Contains(running.Stdout, "$ ") {
			progress++
		}
	}
	if progress == 0 {
		t.Error("no progress update carried command output while running")
	}

	done, _ := svc.Automation.GetExecution(ctx, exec.ID)
	if !strings.HasPrefix(done.Stdout, "Running ") || !strings.Contains(done.Stdout, "Process exited with code 0") {
		t.Errorf("final stdout should hold the whole run: %q", done.Stdout)
	}
}

func TestAutomationService_ExecuteFailureAndRetry(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	exec, err := svc.Automation.Execute(ctx, "usr-001", "pb-001", ExecuteRequest{Parameters: database.JSONB{"fail": true}})
	if err != nil {
		t.Fatal(err)
	}
	svc.Automation.Wait()

	failed, _ := svc.Automation.GetExecution(ctx, exec.ID)
	if failed.Status != models.ExecutionStatusFailed {
		t.Fatalf("Status = %s, want failed", failed.Status)
	}

	retry, err := svc.Automation.Retry(ctx, "usr-002", exec.ID)
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if retry.ID == exec.ID || retry.RetryOf != exec.ID || retry.TriggerSource != models.TriggerRetry {
		t.Errorf("retry = %+v", retry)
	}
	if retry.Parameters["fail"] != true {
		t.Errorf("retry parameters = %v", retry.Parameters)
	}
	svc.Automation.Wait()
}

func TestAutomationService_RequiredParameters(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	_, err := svc.Automation.Execute(ctx, "usr-001", "pb-003", ExecuteRequest{})
	assertStatus(t, err, 422)

	_, err = svc.Automation.Execute(ctx, "usr-001", "pb-999", ExecuteRequest{})
	assertStatus(t, err, 404)
}

func TestAutomationService_ExecuteForRule(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	rule, _ := svc.AlertRules.Get(ctx, "rule-001")
	exec, err := svc.Automation.ExecuteForRule(ctx, rule, "inc-001")
	if err != nil {
		t.Fatal(err)
	}
	if exec == nil || exec.RuleID != "rule-001" || exec.IncidentID != "inc-001" || exec.TriggeredBy != "System" {
		t.Fatalf("ExecuteForRule() = %+v", exec)
	}
	svc.Automation.Wait()

	disabled, _ := svc.AlertRules.Get(ctx, "rule-003")
	exec, err = svc.Automation.ExecuteForRule(ctx, disabled, "inc-003")
	if err != nil || exec != nil {
		t.Errorf("disabled automation started %v (%v)", exec, err)
	}
}

func TestAutomationService_ListExecutions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	got, err := svc.Automation.ListExecutions(ctx, ExecutionFilter{Status: "failed"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "exec-001" {
		t.Errorf("ListExecutions() = %+v", got)
	}

	_, err = svc.Automation.Retry(ctx, "usr-001", "exec-404")
	assertStatus(t, err, 404)
}
