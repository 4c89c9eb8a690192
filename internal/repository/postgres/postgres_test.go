package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ignite/campaign-mailer/internal/domain"
	"github.com/ignite/campaign-mailer/internal/service/campaign"
	"github.com/ignite/campaign-mailer/internal/service/sending"
	"github.com/ignite/campaign-mailer/internal/service/suppression"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return db, mock, func() { db.Close() }
}

func checkExpectations(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

var contactCols = []string{"id", "owner_id", "email", "company", "full_name",
	"work_phone", "mobile_phone", "role", "address", "city", "state", "zip", "created_at"}

// =============================================================================
// CAMPAIGN REPO
// =============================================================================

func TestCampaignRepo_GetBundle(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewCampaignRepo(db)
	now := time.Now()

	mock.ExpectQuery(`FROM campaigns c\s+JOIN templates t`).
		WithArgs("camp-1", "owner-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "owner_id", "name", "subject", "template_id", "status", "scheduled_at", "sent_at", "created_at",
			"t_id", "t_owner_id", "t_name", "t_subject", "body", "t_created_at",
		}).AddRow("camp-1", "owner-1", "Launch", "Hi {{fullName}}", "tpl-1", "scheduled", now, nil, now,
			"tpl-1", "owner-1", "Launch template", "Template subject", "<p>Body</p>", now))
	mock.ExpectQuery(`FROM campaign_contacts cc\s+JOIN contacts ct`).
		WithArgs("camp-1").
		WillReturnRows(sqlmock.NewRows(contactCols).
			AddRow("c2", "owner-1", "b@example.com", "Acme", "Bob", "", "", "", "", "", "", "", now).
			AddRow("c1", "owner-1", "a@example.com", "Acme", "Ann", "555", "", "CTO", "", "Lisbon", "", "", now))

	b, err := repo.GetBundle(context.Background(), "owner-1", "camp-1")
	if err != nil {
		t.Fatalf("GetBundle: %v", err)
	}
	if b.Campaign.Status != domain.CampaignScheduled || b.Campaign.ScheduledAt == nil || b.Campaign.SentAt != nil {
		t.Errorf("unexpected campaign: %+v", b.Campaign)
	}
	if b.Template.Body != "<p>Body</p>" {
		t.Errorf("unexpected template: %+v", b.Template)
	}
	if len(b.Contacts) != 2 || b.Contacts[0].ID != "c2" || b.Contacts[1].City != "Lisbon" {
		t.Errorf("unexpected contacts: %+v", b.Contacts)
	}
	if len(b.Campaign.ContactIDs) != 2 || b.Campaign.ContactIDs[0] != "c2" {
		t.Errorf("contact ids must follow stored order: %v", b.Campaign.ContactIDs)
	}
	checkExpectations(t, mock)
}

func TestCampaignRepo_GetBundle_NotFound(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`FROM campaigns c`).WillReturnError(sql.ErrNoRows)

	_, err := NewCampaignRepo(db).GetBundle(context.Background(), "owner-1", "missing")
	if !errors.Is(err, campaign.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	checkExpectations(t, mock)
}

func TestCampaignRepo_TransitionStatus(t *testing.T) {
	from := []domain.CampaignStatus{domain.CampaignDraft, domain.CampaignScheduled}

	t.Run("wins compare-and-set", func(t *testing.T) {
		db, mock, cleanup := setupTestDB(t)
		defer cleanup()
		mock.ExpectExec(`UPDATE campaigns SET status = \$1, updated_at = NOW\(\)\s+WHERE id = \$2 AND owner_id = \$3 AND status = ANY\(\$4\)`).
			WithArgs("dispatching", "camp-1", "owner-1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := NewCampaignRepo(db).TransitionStatus(context.Background(), "owner-1", "camp-1", from, domain.CampaignDispatching); err != nil {
			t.Fatalf("TransitionStatus: %v", err)
		}
		checkExpectations(t, mock)
	})

	t.Run("loses compare-and-set", func(t *testing.T) {
		db, mock, cleanup := setupTestDB(t)
		defer cleanup()
		mock.ExpectExec(`UPDATE campaigns SET status`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs("camp-1", "owner-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err := NewCampaignRepo(db).TransitionStatus(context.Background(), "owner-1", "camp-1", from, domain.CampaignDispatching)
		if !errors.Is(err, campaign.ErrStatusConflict) {
			t.Fatalf("expected ErrStatusConflict, got %v", err)
		}
		checkExpectations(t, mock)
	})

	t.Run("missing campaign", func(t *testing.T) {
		db, mock, cleanup := setupTestDB(t)
		defer cleanup()
		mock.ExpectExec(`UPDATE campaigns SET status`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT EXISTS`).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		err := NewCampaignRepo(db).TransitionStatus(context.Background(), "owner-1", "camp-1", from, domain.CampaignDispatching)
		if !errors.Is(err, campaign.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		checkExpectations(t, mock)
	})
}

func TestCampaignRepo_MarkSent(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE campaigns SET status = \$1, sent_at = \$2`).
		WithArgs("sent", at, "camp-1", "owner-1", "dispatching").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewCampaignRepo(db).MarkSent(context.Background(), "owner-1", "camp-1", at); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	checkExpectations(t, mock)
}

// =============================================================================
// CONTACT / SETTINGS REPOS
// =============================================================================

func TestContactRepo_GetByEmails(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`FROM contacts ct\s+WHERE ct.owner_id = \$1 AND ct.email = ANY\(\$2\)`).
		WithArgs("owner-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(contactCols).
			AddRow("c1", "owner-1", "a@example.com", "", "Ann", "", "", "", "", "", "", "", time.Now()))

	got, err := NewContactRepo(db).GetByEmails(context.Background(), "owner-1", []string{"a@example.com", "zz@example.com"})
	if err != nil {
		t.Fatalf("GetByEmails: %v", err)
	}
	if len(got) != 1 || got[0].FullName != "Ann" {
		t.Errorf("unexpected contacts: %+v", got)
	}
	checkExpectations(t, mock)

	none, err := NewContactRepo(db).GetByEmails(context.Background(), "owner-1", nil)
	if err != nil || none != nil {
		t.Errorf("empty input must skip the query, got %v, %v", none, err)
	}
}

func TestSettingsRepo_Get(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewSettingsRepo(db)

	mock.ExpectQuery(`FROM transport_settings`).WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "region", "access_key_id", "secret_access_key",
			"from_email", "from_name", "reply_to_email", "is_verified", "updated_at"}).
			AddRow("owner-1", "eu-west-1", "AKID", "secret", "news@acme.io", "Acme", "", true, time.Now()))
	mock.ExpectQuery(`FROM transport_settings`).WithArgs("owner-2").WillReturnError(sql.ErrNoRows)

	s, err := repo.Get(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s.Region != "eu-west-1" || !s.Verified || s.FromName != "Acme" {
		t.Errorf("unexpected settings: %+v", s)
	}

	if _, err := repo.Get(context.Background(), "owner-2"); !errors.Is(err, sending.ErrConfigurationMissing) {
		t.Errorf("expected ErrConfigurationMissing, got %v", err)
	}
	checkExpectations(t, mock)
}

// =============================================================================
// DELIVERY LOG REPO
// =============================================================================

func TestDeliveryLogRepo_Create(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()
	campaignID := "camp-1"
	entry := &domain.DeliveryLog{
		OwnerID: "owner-1", To: "a@example.com", Subject: "Hi", Status: domain.DeliveryFailed,
		MessageID: domain.NoMessageID, Error: "QuotaExceeded", ErrorType: "quota_exceeded",
		Type: domain.DeliveryBulk, CampaignID: &campaignID, SentAt: time.Now(),
	}

	mock.ExpectExec(`INSERT INTO delivery_logs`).
		WithArgs(sqlmock.AnyArg(), "owner-1", "a@example.com", "Hi", "failed", "N/A",
			"QuotaExceeded", "quota_exceeded", "bulk", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewDeliveryLogRepo(db).Create(context.Background(), entry); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if entry.ID == "" {
		t.Error("expected generated id")
	}
	checkExpectations(t, mock)
}

func TestDeliveryLogRepo_List_BuildsFilters(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM delivery_logs WHERE owner_id = \$1 AND status = \$2 AND type = \$3 AND \(recipient ILIKE \$4 OR subject ILIKE \$4\)`).
		WithArgs("owner-1", "failed", "bulk", `%50\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(`ORDER BY sent_at DESC LIMIT \$5 OFFSET \$6`).
		WithArgs("owner-1", "failed", "bulk", `%50\%%`, 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "recipient", "subject", "status", "message_id",
			"error", "error_type", "type", "campaign_id", "sent_at"}).
			AddRow("l1", "owner-1", "a@example.com", "50% off", "failed", "N/A", "x", "unknown", "bulk", "camp-1", now).
			AddRow("l2", "owner-1", "b@example.com", "50% off", "failed", "N/A", "x", "unknown", "bulk", nil, now))

	out, total, err := NewDeliveryLogRepo(db).List(context.Background(), "owner-1", sending.HistoryFilter{
		Status: domain.DeliveryFailed,
		Type:   domain.DeliveryBulk,
		Search: "50%",
		Limit:  10,
		Offset: 10,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 11 || len(out) != 2 {
		t.Fatalf("total=%d len=%d", total, len(out))
	}
	if out[0].CampaignID == nil || *out[0].CampaignID != "camp-1" || out[1].CampaignID != nil {
		t.Errorf("campaign ids not mapped: %+v", out)
	}
	checkExpectations(t, mock)
}

// =============================================================================
// SUPPRESSION REPO
// =============================================================================

func TestSuppressionRepo_MatchKeys(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`FROM unsubscribes u\s+WHERE u.contact_id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"contact_id", "owner_id", "email"}).
			AddRow("c1", nil, "a@example.com").
			AddRow(nil, "owner-1", "b@example.com").
			AddRow("c-other", "owner-1", "zz@example.com"))

	keys := []suppression.Key{
		suppression.ByContact("c1"),
		suppression.ByOwner("owner-1", "a@example.com"),
		suppression.ByContact("c2"),
		suppression.ByOwner("owner-1", "B@Example.com"),
	}
	got, err := NewSuppressionRepo(db).MatchKeys(context.Background(), keys)
	if err != nil {
		t.Fatalf("MatchKeys: %v", err)
	}
	if len(got) != 2 || got[0] != suppression.ByContact("c1") || got[1] != suppression.ByOwner("owner-1", "b@example.com") {
		t.Errorf("unexpected matches: %+v", got)
	}
	checkExpectations(t, mock)
}

func TestSuppressionRepo_MatchKeysContactRowIsNotOwnerWide(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	// A row keyed by an unrelated contact that also carries the owner id.
	mock.ExpectQuery(`EXISTS \(\s*SELECT 1 FROM unnest.*WHERE u.contact_id IS NULL AND k.owner_id = u.owner_id`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"contact_id", "owner_id", "email"}).
			AddRow("c-bogus", "owner-1", "victim@example.com"))

	keys := []suppression.Key{
		suppression.ByContact("c-real"),
		suppression.ByOwner("owner-1", "victim@example.com"),
	}
	got, err := NewSuppressionRepo(db).MatchKeys(context.Background(), keys)
	if err != nil {
		t.Fatalf("MatchKeys: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no matches, got %+v", got)
	}
	checkExpectations(t, mock)
}

func TestSuppressionRepo_UpsertAndFind(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewSuppressionRepo(db)
	contactID := "c1"
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO unsubscribes .* ON CONFLICT \(email, contact_id\) WHERE contact_id IS NOT NULL`).
		WithArgs(sqlmock.AnyArg(), "a@example.com", sqlmock.AnyArg(), sqlmock.AnyArg(), "spam", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-id"))

	entry := &domain.Suppression{Email: "a@example.com", ContactID: &contactID, Reason: "spam", CreatedAt: now}
	if err := repo.Upsert(context.Background(), entry); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if entry.ID != "existing-id" {
		t.Errorf("expected id of the refreshed row, got %q", entry.ID)
	}

	mock.ExpectQuery(`WHERE email = \$1 AND contact_id = \$2`).WithArgs("a@example.com", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "contact_id", "owner_id", "reason", "created_at"}).
			AddRow("existing-id", "a@example.com", "c1", nil, "spam", now))
	found, err := repo.Find(context.Background(), "a@example.com", suppression.ByContact("c1"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if found.ContactID == nil || *found.ContactID != "c1" || found.OwnerID != nil {
		t.Errorf("unexpected entry: %+v", found)
	}

	mock.ExpectQuery(`WHERE email = \$1 AND owner_id = \$2 AND contact_id IS NULL`).WithArgs("a@example.com", "owner-9").
		WillReturnError(sql.ErrNoRows)
	if _, err := repo.Find(context.Background(), "a@example.com", suppression.ByOwner("owner-9", "a@example.com")); !errors.Is(err, suppression.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	checkExpectations(t, mock)
}
