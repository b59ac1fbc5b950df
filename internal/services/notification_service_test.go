package services

import (
	"context"
	"testing"

	"github.com/akmatori/opsconsole/internal/models"
)

func TestNotificationService_TestChannel(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	result, err := svc.Notifications.TestChannel(ctx, "usr-001", "ch-003")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success || result.Message != "Test message simulated" {
		t.Errorf("TestChannel() = %+v", result)
	}

	channel, _ := svc.Notifications.GetChannel(ctx, "ch-003")
	if channel.LastTestResult == nil || !channel.LastTestResult.Success {
		t.Errorf("LastTestResult = %+v", channel.LastTestResult)
	}
	history, _ := svc.Notifications.History(ctx, HistoryFilter{ChannelID: "ch-003"})
	if len(history) != 1 || history[0].Status != models.DeliverySimulated {
		t.Errorf("History() = %+v", history)
	}
}

func TestNotificationService_TestChannelInvalidConfig(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	// bypass validation to store a broken channel
	broken := &models.NotificationChannel{Name: "broken", Type: models.ChannelWebhook, Enabled: true}
	created, err := svc.Store.NotificationChannels.Create(ctx, broken)
	if err != nil {
		t.Fatal(err)
	}

	result, err := svc.Notifications.TestChannel(ctx, "usr-001", created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if result.Success {
		t.Errorf("TestChannel() = %+v, want failure", result)
	}
}

func TestNotificationService_ChannelValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	tests := []struct {
		name    string
		channel models.NotificationChannel
	}{
		{"no name", models.NotificationChannel{Type: models.ChannelEmail}},
		{"bad type", models.NotificationChannel{Name: "x", Type: "pager"}},
		{"missing recipients", models.NotificationChannel{Name: "x", Type: models.ChannelEmail}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := tt.channel
			_, err := svc.Notifications.CreateChannel(ctx, "usr-001", &ch)
			assertStatus(t, err, 400)
		})
	}
}

func TestNotificationService_StrategyValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	_, err := svc.Notifications.CreateStrategy(ctx, "usr-001", &models.NotificationStrategy{Name: "x", ChannelIDs: []string{"ch-404"}})
	assertStatus(t, err, 400)

	_, err = svc.Notifications.CreateStrategy(ctx, "usr-001", &models.NotificationStrategy{Name: "x", Severities: []models.Severity{"urgent"}})
	assertStatus(t, err, 400)
}

func TestNotificationService_NotifyIncident(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	critical, _ := svc.Incidents.Get(ctx, "inc-001")
	sent, err := svc.Notifications.NotifyIncident(ctx, critical)
	if err != nil {
		t.Fatal(err)
	}
	if sent != 3 {
		t.Errorf("critical deliveries = %d, want 3", sent)
	}

	high, _ := svc.Incidents.Get(ctx, "inc-002")
	if sent, _ := svc.Notifications.NotifyIncident(ctx, high); sent != 1 {
		t.Errorf("high deliveries = %d, want 1", sent)
	}

	unread, _ := svc.Notifications.ListNotifications(ctx, true)
	if len(unread) != 4 || unread[0].Link != "/incidents/inc-002" {
		t.Errorf("unread = %d, newest %+v", len(unread), unread[0])
	}
}

func TestNotificationService_MarkRead(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	seeded, _ := svc.Notifications.MarkRead(ctx, "ntf-001")
	if seeded.ReadAt == nil || seeded.ReadAt.Year() != 2024 {
		t.Errorf("re-reading must keep read_at, got %v", seeded.ReadAt)
	}

	n, err := svc.Notifications.MarkAllRead(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("MarkAllRead() = %d, want 2", n)
	}
	unread, _ := svc.Notifications.ListNotifications(ctx, true)
	if len(unread) != 0 {
		t.Errorf("unread after MarkAllRead = %d", len(unread))
	}

	_, err = svc.Notifications.MarkRead(ctx, "ntf-404")
	assertStatus(t, err, 404)
}
