package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"agencydesk-backend/models"
	"agencydesk-backend/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) (*GormStore, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return New(db, nil), db
}

func TestQuery_FilterOrderLimit(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	stages := testutil.CreateStages(t, db, "New", "Qualified", "Converted")

	for _, v := range []float64{100, 300, 200} {
		testutil.CreateLead(t, db, &stages[0].ID, v)
	}
	testutil.CreateLead(t, db, &stages[1].ID, 999)

	var leads []models.Lead
	err := s.Query(ctx, Leads, Where().Eq("pipeline_stage_id", stages[0].ID).Order("deal_value", true).Limit(2), &leads)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, 300.0, leads[0].DealValue)
	assert.Equal(t, 200.0, leads[1].DealValue)
}

func TestQuery_SingleRowNotFound(t *testing.T) {
	s, _ := newTestStore(t)

	var lead models.Lead
	err := Get(context.Background(), s, Leads, uuid.New(), &lead)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuery_RejectsBadInput(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var rows []models.Lead
	assert.ErrorIs(t, s.Query(ctx, Table("nope"), nil, &rows), ErrInvalidArgument)
	assert.ErrorIs(t, s.Query(ctx, Leads, Where().Eq("name; drop table leads", 1), &rows), ErrInvalidArgument)
	assert.ErrorIs(t, s.Query(ctx, Leads, nil, rows), ErrInvalidArgument)
}

func TestMutate_UpdateAndDelete(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	lead := testutil.CreateLead(t, db, nil, 50)

	require.NoError(t, UpdateByID(ctx, s, Leads, lead.ID, map[string]interface{}{"lead_score": 42}))

	var got models.Lead
	require.NoError(t, Get(ctx, s, Leads, lead.ID, &got))
	assert.Equal(t, 42, got.LeadScore)

	require.NoError(t, DeleteByID(ctx, s, Leads, lead.ID))
	assert.ErrorIs(t, DeleteByID(ctx, s, Leads, lead.ID), ErrNotFound)
}

func TestMutate_RequiresMatch(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Mutate(ctx, Leads, Mutation{Op: Update, Values: map[string]interface{}{"lead_score": 1}})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.Mutate(ctx, Leads, Mutation{Op: Delete})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMutate_DeleteWithDependents(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	customer := testutil.CreateCustomer(t, db)
	testutil.CreateInvoice(t, db, customer.ID, 120, models.InvoiceSent)

	err := DeleteByID(ctx, s, Profiles, customer.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHasDependents)

	var depErr *DependentsError
	require.True(t, errors.As(err, &depErr))
	assert.Equal(t, Invoices, depErr.Dependent)
	assert.EqualValues(t, 1, depErr.Count)

	// Row survives the rejected delete.
	var still models.Profile
	assert.NoError(t, Get(ctx, s, Profiles, customer.ID, &still))
}

func TestMutate_DeleteStageWithoutLeads(t *testing.T) {
	s, db := newTestStore(t)
	stages := testutil.CreateStages(t, db, "New", "Lost")
	testutil.CreateLead(t, db, &stages[0].ID, 10)

	assert.ErrorIs(t, DeleteByID(context.Background(), s, PipelineStages, stages[0].ID), ErrHasDependents)
	assert.NoError(t, DeleteByID(context.Background(), s, PipelineStages, stages[1].ID))
}

func TestMutate_TranslatesForeignKeyViolation(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	mock.ExpectExec("DELETE FROM").WillReturnError(&pgconn.PgError{
		Code:    "23503",
		Message: `update or delete on table "leads" violates foreign key constraint`,
	})

	s := New(db, nil)
	err = DeleteByID(context.Background(), s, Leads, uuid.New())
	assert.ErrorIs(t, err, ErrHasDependents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslate(t *testing.T) {
	assert.Nil(t, translate(nil))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey), ErrDuplicate)
	assert.ErrorIs(t, translate(&pgconn.PgError{Code: "23505"}), ErrDuplicate)
	assert.ErrorIs(t, translate(&pgconn.PgError{Code: "23503"}), ErrHasDependents)

	other := errors.New("boom")
	assert.Equal(t, other, translate(other))
}

func TestInvoke_Function(t *testing.T) {
	s, _ := newTestStore(t)
	s.RegisterFunction("echo", func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var in map[string]string
		if err := json.Unmarshal(payload, &in); err != nil {
			return nil, err
		}
		return map[string]string{"echo": in["msg"]}, nil
	})

	var out map[string]string
	require.NoError(t, s.Invoke(context.Background(), "echo", map[string]string{"msg": "hi"}, &out))
	assert.Equal(t, "hi", out["echo"])

	assert.ErrorIs(t, s.Invoke(context.Background(), "missing", nil, nil), ErrUnknownFunction)
}

func TestConvertLeadToProject(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	stages := testutil.CreateStages(t, db, "New", "Qualified", "Converted")
	lead := testutil.CreateLead(t, db, &stages[2].ID, 5000)

	var res ConvertLeadResult
	err := s.Invoke(ctx, ProcConvertLeadToProject, ConvertLeadParams{LeadID: lead.ID, Type: "website"}, &res)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, res.ProjectID)
	require.NotNil(t, res.CustomerID)

	var project models.Project
	require.NoError(t, Get(ctx, s, Projects, res.ProjectID, &project))
	assert.Equal(t, 5000.0, project.EstimatedBudget)
	assert.Equal(t, lead.Company, project.Title)
	require.NotNil(t, project.LeadID)
	assert.Equal(t, lead.ID, *project.LeadID)

	var got models.Lead
	require.NoError(t, Get(ctx, s, Leads, lead.ID, &got))
	assert.True(t, got.ConvertedToCustomer)
	assert.NotNil(t, got.ConvertedAt)
	require.NotNil(t, got.ConvertedProjectID)
	assert.Equal(t, res.ProjectID, *got.ConvertedProjectID)

	var customer models.Profile
	require.NoError(t, Get(ctx, s, Profiles, *res.CustomerID, &customer))
	assert.Equal(t, lead.Email, customer.Email)

	var activities []models.LeadActivity
	require.NoError(t, s.Query(ctx, LeadActivities, Where().Eq("lead_id", lead.ID), &activities))
	require.Len(t, activities, 1)
	assert.Equal(t, "converted", activities[0].Action)

	err = s.Invoke(ctx, ProcConvertLeadToProject, ConvertLeadParams{LeadID: lead.ID}, nil)
	assert.ErrorIs(t, err, ErrAlreadyConverted)
}

func TestConvertLeadToProject_ReusesCustomerAndBudget(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	customer := testutil.CreateCustomer(t, db)
	lead := testutil.CreateLead(t, db, nil, 800)
	require.NoError(t, db.Model(&lead).Update("email", customer.Email).Error)

	var res ConvertLeadResult
	err := s.Invoke(ctx, ProcConvertLeadToProject, ConvertLeadParams{LeadID: lead.ID, Title: "Rebrand", Budget: 1200}, &res)
	require.NoError(t, err)
	require.NotNil(t, res.CustomerID)
	assert.Equal(t, customer.ID, *res.CustomerID)

	var project models.Project
	require.NoError(t, Get(ctx, s, Projects, res.ProjectID, &project))
	assert.Equal(t, "Rebrand", project.Title)
	assert.Equal(t, 1200.0, project.EstimatedBudget)

	var count int64
	require.NoError(t, db.Model(&models.Profile{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestConvertLeadToProject_AdminEmailGetsNoCustomer(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	admin := testutil.CreateAdmin(t, db)
	lead := testutil.CreateLead(t, db, nil, 300)
	require.NoError(t, db.Model(&lead).Update("email", strings.ToUpper(admin.Email)).Error)

	var res ConvertLeadResult
	require.NoError(t, s.Invoke(ctx, ProcConvertLeadToProject, ConvertLeadParams{LeadID: lead.ID}, &res))
	assert.Nil(t, res.CustomerID)

	var project models.Project
	require.NoError(t, Get(ctx, s, Projects, res.ProjectID, &project))
	assert.Nil(t, project.CustomerID)

	var profiles []models.Profile
	require.NoError(t, s.Query(ctx, Profiles, Where(), &profiles))
	require.Len(t, profiles, 1)
	assert.Equal(t, models.RoleAdmin, profiles[0].Role)
}

func TestUpdateAndDeleteWhere_NoMatch(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	admin := testutil.CreateAdmin(t, db)
	customersOnly := Where().Eq("id", admin.ID).Eq("role", models.RoleCustomer)

	err := UpdateWhere(ctx, s, Profiles, customersOnly, map[string]interface{}{"full_name": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, DeleteWhere(ctx, s, Profiles, customersOnly), ErrNotFound)

	var got models.Profile
	require.NoError(t, Get(ctx, s, Profiles, admin.ID, &got))
	assert.Equal(t, admin.FullName, got.FullName)
}

func TestConvertLeadToProject_RollsBackOnMissingLead(t *testing.T) {
	s, db := newTestStore(t)

	err := s.Invoke(context.Background(), ProcConvertLeadToProject, ConvertLeadParams{LeadID: uuid.New()}, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	var count int64
	require.NoError(t, db.Model(&models.Project{}).Count(&count).Error)
	assert.Zero(t, count)
}
