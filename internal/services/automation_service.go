package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/akmatori/opsconsole/internal/apierr"
	"github.com/akmatori/opsconsole/internal/database"
	"github.com/akmatori/opsconsole/internal/events"
	"github.com/akmatori/opsconsole/internal/executor"
	"github.com/akmatori/opsconsole/internal/metrics"
	"github.com/akmatori/opsconsole/internal/models"
)

// ScriptFilter narrows a script listing
type ScriptFilter struct {
	Type     string
	Category string
	Keyword  string
}

// ExecutionFilter narrows an execution listing
type ExecutionFilter struct {
	ScriptID   string
	Status     string
	IncidentID string
}

// ExecuteRequest is the body of POST /automation/scripts/{id}/execute
type ExecuteRequest struct {
	Parameters database.JSONB `json:"parameters"`
	IncidentID string         `json:"incident_id,omitempty"`
}

// executeOrigin describes what started an execution
type executeOrigin struct {
	trigger    string
	incidentID string
	ruleID     string
	retryOf    string
}

// AutomationService manages playbooks and drives their simulated executions.
// Every execution runs in its own goroutine; Wait blocks until all of them finished.
type AutomationService struct {
	store    *Store
	executor *executor.Executor
	changes  changes
	now      func() time.Time

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAutomationService creates a new AutomationService
func NewAutomationService(store *Store, exec *executor.Executor, audit *AuditService, publisher events.Publisher) *AutomationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &AutomationService{
		store:    store,
		executor: exec,
		changes:  changes{audit: audit, events: publisher},
		now:      time.Now,
		runCtx:   ctx,
		cancel:   cancel,
	}
}

// Wait blocks until every started execution finished
func (s *AutomationService) Wait() {
	s.wg.Wait()
}

// Stop cancels running executions and waits for them to record their outcome
func (s *AutomationService) Stop() {
	s.cancel()
	s.wg.Wait()
}

// ========== Scripts ==========

// ListScripts returns playbooks matching filter
func (s *AutomationService) ListScripts(ctx context.Context, filter ScriptFilter) ([]models.Playbook, error) {
	keyword := strings.ToLower(filter.Keyword)
	return s.store.Playbooks.Filter(ctx, func(p *models.Playbook) bool {
		if (filter.Type != "" && p.Type != filter.Type) || (filter.Category != "" && p.Category != filter.Category) {
			return false
		}
		return keyword == "" ||
			strings.Contains(strings.ToLower(p.Name), keyword) ||
			strings.Contains(strings.ToLower(p.Description), keyword)
	})
}

// GetScript returns one playbook
func (s *AutomationService) GetScript(ctx context.Context, id string) (*models.Playbook, error) {
	return s.store.Playbooks.Get(ctx, id)
}

func validateScript(p *models.Playbook) error {
	if strings.TrimSpace(p.Name) == "" {
		return apierr.BadRequest("name is required")
	}
	if strings.TrimSpace(p.Content) == "" {
		return apierr.BadRequest("content is required")
	}
	return nil
}

// CreateScript stores a new playbook
func (s *AutomationService) CreateScript(ctx context.Context, userID string, script *models.Playbook) (*models.Playbook, error) {
	script.ID = ""
	script.LastExecutionAt = nil
	if err := validateScript(script); err != nil {
		return nil, err
	}
	if script.Type == "" {
		script.Type = "bash"
	}
	script.CreatedBy = userName(ctx, s.store, userID)

	created, err := s.store.Playbooks.Create(ctx, script)
	if err != nil {
		return nil, fmt.Errorf("failed to create script: %w", err)
	}
	logrus.Infof("Created script: %s (%s)", created.Name, created.ID)
	s.changes.record(ctx, userID, events.TypeCreated, "create", "script", created.ID, map[string]interface{}{"name": created.Name}, created)
	return created, nil
}

// UpdateScript shallow-merges patch over the playbook
func (s *AutomationService) UpdateScript(ctx context.Context, userID, id string, patch map[string]json.RawMessage) (*models.Playbook, error) {
	current, err := s.store.Playbooks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	preview, err := mergePreview(current, patch)
	if err != nil {
		return nil, err
	}
	if err := validateScript(preview); err != nil {
		return nil, err
	}

	updated, err := s.store.Playbooks.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.changes.record(ctx, userID, events.TypeUpdated, "update", "script", id, map[string]interface{}{"fields": patchKeys(patch)}, updated)
	return updated, nil
}

// DeleteScript soft-deletes a playbook. Rules still bound to it keep the id;
// executing them later reports the script as not found.
func (s *AutomationService) DeleteScript(ctx context.Context, userID, id string) error {
	if err := s.store.Playbooks.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.changes.record(ctx, userID, events.TypeDeleted, "delete", "script", id, nil, nil)
	return nil
}

// ========== Executions ==========

// ListExecutions returns executions matching filter, newest first
func (s *AutomationService) ListExecutions(ctx context.Context, filter ExecutionFilter) ([]models.Execution, error) {
	return s.store.Executions.Filter(ctx, func(e *models.Execution) bool {
		return (filter.ScriptID == "" || e.ScriptID == filter.ScriptID) &&
			(filter.Status == "" || string(e.Status) == filter.Status) &&
			(filter.IncidentID == "" || e.IncidentID == filter.IncidentID)
	})
}

// GetExecution returns one execution
func (s *AutomationService) GetExecution(ctx context.Context, id string) (*models.Execution, error) {
	return s.store.Executions.Get(ctx, id)
}

// Execute starts a manual run of the script and returns the pending execution
func (s *AutomationService) Execute(ctx context.Context, userID, scriptID string, req ExecuteRequest) (*models.Execution, error) {
	return s.start(ctx, userID, scriptID, req.Parameters, executeOrigin{trigger: models.TriggerManual, incidentID: req.IncidentID})
}

// ExecuteForRule starts the script bound to rule for a freshly raised incident
func (s *AutomationService) ExecuteForRule(ctx context.Context, rule *models.AlertRule, incidentID string) (*models.Execution, error) {
	if rule.Automation == nil || !rule.Automation.Enabled || rule.Automation.ScriptID == "" {
		return nil, nil
	}
	return s.start(ctx, "", rule.Automation.ScriptID, rule.Automation.Parameters, executeOrigin{
		trigger:    models.TriggerAlertRule,
		incidentID: incidentID,
		ruleID:     rule.ID,
	})
}

// Retry starts a new execution with the script and parameters of a finished one
func (s *AutomationService) Retry(ctx context.Context, userID, executionID string) (*models.Execution, error) {
	prev, err := s.store.Executions.Get(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if !prev.Status.IsFinished() {
		return nil, apierr.BadRequest("execution %s is still %s", executionID, prev.Status)
	}
	return s.start(ctx, userID, prev.ScriptID, prev.Parameters, executeOrigin{
		trigger:    models.TriggerRetry,
		incidentID: prev.IncidentID,
		ruleID:     prev.RuleID,
		retryOf:    prev.ID,
	})
}

func (s *AutomationService) start(ctx context.Context, userID, scriptID string, params database.JSONB, origin executeOrigin) (*models.Execution, error) {
	script, err := s.store.Playbooks.Get(ctx, scriptID)
	if err != nil {
		return nil, err
	}
	if err := checkRequiredParams(script, params); err != nil {
		return nil, err
	}
	if params == nil {
		params = database.JSONB{}
	}

	triggeredBy := systemUserName
	if userID != "" {
		triggeredBy = userName(ctx, s.store, userID)
	}
	exec, err := s.store.Executions.Create(ctx, &models.Execution{
		ScriptID:      script.ID,
		ScriptName:    script.Name,
		Status:        models.ExecutionStatusPending,
		TriggerSource: origin.trigger,
		TriggeredBy:   triggeredBy,
		IncidentID:    origin.incidentID,
		RuleID:        origin.ruleID,
		RetryOf:       origin.retryOf,
		Parameters:    params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create execution: %w", err)
	}

	now := s.now().UTC()
	if _, err := s.store.Playbooks.Mutate(ctx, script.ID, func(p *models.Playbook) error {
		p.LastExecutionAt = &now
		return nil
	}); err != nil {
		logrus.Warnf("Failed to stamp last execution of %s: %v", script.ID, err)
	}

	logrus.Infof("Started execution %s of script %s (%s)", exec.ID, script.Name, origin.trigger)
	s.changes.record(ctx, userID, events.TypeCreated, "execute", "script", script.ID, map[string]interface{}{
		"execution_id": exec.ID,
		"trigger":      origin.trigger,
	}, exec)

	pending := *exec
	s.wg.Add(1)
	go s.run(pending, executor.Script{Name: script.Name, Type: script.Type, Content: script.Content})
	return exec, nil
}

func checkRequiredParams(script *models.Playbook, params database.JSONB) error {
	missing := map[string]string{}
	for _, p := range script.Parameters {
		if !p.Required || p.Default != nil {
			continue
		}
		if v, ok := params[p.Name]; !ok || v == nil || v == "" {
			missing[p.Name] = "is required"
		}
	}
	if len(missing) > 0 {
		return apierr.Validation(missing)
	}
	return nil
}

// run drives one execution through running to its final state
func (s *AutomationService) run(exec models.Execution, script executor.Script) {
	defer s.wg.Done()
	ctx := s.runCtx
	storeCtx := context.WithoutCancel(ctx)

	started := s.now().UTC()
	running, err := s.store.Executions.Mutate(storeCtx, exec.ID, func(e *models.Execution) error {
		e.Status = models.ExecutionStatusRunning
		e.StartedAt = &started
		return nil
	})
	if err != nil {
		logrus.Errorf("Failed to mark execution %s running: %v", exec.ID, err)
		return
	}
	s.changes.events.Publish(events.Event{Type: events.TypeUpdated, EntityType: "execution", EntityID: exec.ID, Data: running})

	params := map[string]interface{}(exec.Parameters)
	result := s.executor.Execute(ctx, script, params, func(tail string) {
		s.progress(storeCtx, exec.ID, tail)
	})

	finished := s.now().UTC()
	final, err := s.store.Executions.Mutate(storeCtx, exec.ID, func(e *models.Execution) error {
		e.Stdout = result.Stdout
		e.Stderr = result.Stderr
		exitCode := result.ExitCode
		e.ExitCode = &exitCode
		e.FinishedAt = &finished
		e.DurationMs = result.ExecutionTime.Milliseconds()
		e.Status = models.ExecutionStatusSuccess
		if result.Failed() {
			e.Status = models.ExecutionStatusFailed
		}
		return nil
	})
	if err != nil {
		logrus.Errorf("Failed to record outcome of execution %s: %v", exec.ID, err)
		return
	}

	metrics.ExecutionsTotal.WithLabelValues(string(final.Status), final.TriggerSource).Inc()
	metrics.ExecutionDuration.Observe(result.ExecutionTime.Seconds())
	logrus.Infof("Execution %s finished: %s in %dms", final.ID, final.Status, final.DurationMs)
	s.changes.events.Publish(events.Event{Type: events.TypeFinished, EntityType: "execution", EntityID: final.ID, Data: final})
}

// progress stores the latest output tail of a running execution and announces it
func (s *AutomationService) progress(ctx context.Context, id, tail string) {
	updated, err := s.store.Executions.Mutate(ctx, id, func(e *models.Execution) error {
		e.Stdout = tail
		return nil
	})
	if err != nil {
		logrus.Warnf("Failed to record progress of execution %s: %v", id, err)
		return
	}
	s.changes.events.Publish(events.Event{Type: events.TypeUpdated, EntityType: "execution", EntityID: id, Data: updated})
}
