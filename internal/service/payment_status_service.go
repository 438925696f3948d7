package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-adp-billing/internal/models"
	appErrors "github.com/noah-isme/sma-adp-billing/pkg/errors"
	"github.com/noah-isme/sma-adp-billing/pkg/money"
)

type billingStudentReader interface {
	FindByID(ctx context.Context, id, schoolYearID string) (*models.BillingStudent, error)
	ListByClass(ctx context.Context, classID, schoolYearID string) ([]models.BillingStudent, error)
}

type trancheReader interface {
	ListActiveForClass(ctx context.Context, classID, schoolYearID string) ([]models.Tranche, error)
}

type paymentHistoryReader interface {
	ListForStudent(ctx context.Context, studentID, schoolYearID string) ([]models.Payment, error)
}

type discountSettingsReader interface {
	Get(ctx context.Context) (*models.GlobalDiscountSettings, error)
}

// PaymentStatusServiceConfig tunes the status service.
type PaymentStatusServiceConfig struct {
	ClassConcurrency int
}

// PaymentStatusService builds billing snapshots from payment history.
type PaymentStatusService struct {
	students    billingStudentReader
	tranches    trancheReader
	payments    paymentHistoryReader
	settings    discountSettingsReader
	engine      *DiscountEngine
	metrics     *MetricsService
	logger      *zap.Logger
	concurrency int
	now         func() time.Time
}

// NewPaymentStatusService constructs a PaymentStatusService.
func NewPaymentStatusService(students billingStudentReader, tranches trancheReader, payments paymentHistoryReader, settings discountSettingsReader, engine *DiscountEngine, metrics *MetricsService, logger *zap.Logger, cfg PaymentStatusServiceConfig) *PaymentStatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ClassConcurrency <= 0 {
		cfg.ClassConcurrency = 4
	}
	return &PaymentStatusService{
		students:    students,
		tranches:    tranches,
		payments:    payments,
		settings:    settings,
		engine:      engine,
		metrics:     metrics,
		logger:      logger,
		concurrency: cfg.ClassConcurrency,
		now:         time.Now,
	}
}

// StatusForStudent returns the billing snapshot of a student for a school year.
func (s *PaymentStatusService) StatusForStudent(ctx context.Context, studentID, schoolYearID string) (*models.PaymentStatus, error) {
	status, _, _, err := s.load(ctx, studentID, schoolYearID)
	return status, err
}

// StatusForClass returns the snapshots of every student enrolled in the class.
func (s *PaymentStatusService) StatusForClass(ctx context.Context, classID, schoolYearID string) (*models.ClassPaymentStatus, error) {
	if classID == "" || schoolYearID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class id and school year id are required")
	}
	start := time.Now()
	students, err := s.students.ListByClass(ctx, classID, schoolYearID)
	s.metrics.ObserveDBQuery("billing_students_by_class", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class students")
	}
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]models.PaymentStatus, len(students))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range students {
		i := i
		g.Go(func() error {
			status, err := s.compute(gctx, &students[i], settings)
			if err != nil {
				return err
			}
			statuses[i] = *status
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &models.ClassPaymentStatus{
		ClassID:        classID,
		SchoolYearID:   schoolYearID,
		Students:       statuses,
		TotalRequired:  decimal.Zero,
		TotalPaid:      decimal.Zero,
		TotalRemaining: decimal.Zero,
		GeneratedAt:    s.now().UTC(),
	}
	for _, status := range statuses {
		result.TotalRequired = result.TotalRequired.Add(status.TotalEffectiveRequired)
		result.TotalPaid = result.TotalPaid.Add(status.TotalPaid)
		result.TotalRemaining = result.TotalRemaining.Add(status.TotalRemaining)
		if status.IsFullyPaid {
			result.FullyPaidCount++
		}
	}
	return result, nil
}

// QuoteFinalPayment prices a payment the student is about to make and plans its allocation.
func (s *PaymentStatusService) QuoteFinalPayment(ctx context.Context, studentID, schoolYearID string, amount decimal.Decimal, paymentDate time.Time) (*models.PaymentQuote, error) {
	if !amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be positive")
	}
	if paymentDate.IsZero() {
		paymentDate = s.now()
	}
	status, student, settings, err := s.load(ctx, studentID, schoolYearID)
	if err != nil {
		return nil, err
	}

	final, err := s.engine.CalculateFinalPayment(ctx, settings, student, amount, status.TotalRemaining, paymentDate, status.HasExistingPayments)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to price payment")
	}
	allocations, unallocated := s.engine.PlanAllocation(status, final)

	s.logger.Debug("payment quoted",
		zap.String("student_id", studentID),
		zap.String("payment_type", string(final.PaymentType)),
		zap.String("amount", amount.String()),
	)
	return &models.PaymentQuote{
		StudentID:    studentID,
		SchoolYearID: schoolYearID,
		PaymentDate:  paymentDate,
		Payment:      final,
		Allocations:  allocations,
		Unallocated:  unallocated,
	}, nil
}

func (s *PaymentStatusService) load(ctx context.Context, studentID, schoolYearID string) (*models.PaymentStatus, *models.BillingStudent, *models.GlobalDiscountSettings, error) {
	if studentID == "" || schoolYearID == "" {
		return nil, nil, nil, appErrors.Clone(appErrors.ErrValidation, "student id and school year id are required")
	}
	start := time.Now()
	student, err := s.students.FindByID(ctx, studentID, schoolYearID)
	s.metrics.ObserveDBQuery("billing_student_by_id", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	status, err := s.compute(ctx, student, settings)
	if err != nil {
		return nil, nil, nil, err
	}
	return status, student, settings, nil
}

func (s *PaymentStatusService) loadSettings(ctx context.Context) (*models.GlobalDiscountSettings, error) {
	if s.settings == nil {
		return &models.GlobalDiscountSettings{}, nil
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load discount settings")
	}
	if settings == nil {
		settings = &models.GlobalDiscountSettings{}
	}
	return settings, nil
}

func (s *PaymentStatusService) compute(ctx context.Context, student *models.BillingStudent, settings *models.GlobalDiscountSettings) (*models.PaymentStatus, error) {
	var tranches []models.Tranche
	if student.HasClass() {
		start := time.Now()
		rows, err := s.tranches.ListActiveForClass(ctx, student.Class(), student.SchoolYearID)
		s.metrics.ObserveDBQuery("tranches_for_class", time.Since(start))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tranches")
		}
		tranches = rows
	}

	start := time.Now()
	payments, err := s.payments.ListForStudent(ctx, student.ID, student.SchoolYearID)
	s.metrics.ObserveDBQuery("payments_for_student", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payments")
	}

	scholarships, err := s.engine.ClassScholarships(ctx, student)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scholarships")
	}

	status := s.buildStatus(student, settings, tranches, payments, scholarships)
	s.metrics.RecordStatusComputation(status.AccountingPath)
	return status, nil
}

func (s *PaymentStatusService) buildStatus(student *models.BillingStudent, settings *models.GlobalDiscountSettings, tranches []models.Tranche, payments []models.Payment, scholarships []models.ClassScholarship) *models.PaymentStatus {
	history := summarizeHistory(payments)

	status := &models.PaymentStatus{
		StudentID:              student.ID,
		StudentName:            student.FullName,
		ClassID:                student.ClassID,
		SchoolYearID:           student.SchoolYearID,
		TotalRequired:          decimal.Zero,
		TotalEffectiveRequired: decimal.Zero,
		TotalPaid:              decimal.Zero,
		TotalRemaining:         decimal.Zero,
		TotalScholarship:       decimal.Zero,
		TotalDiscount:          decimal.Zero,
		HasScholarship:         len(scholarships) > 0,
		AccountingPath:         models.AccountingPathStandard,
		HasExistingPayments:    len(payments) > 0,
		DiscountPercentage:     settings.Percentage(),
		DiscountDeadline:       settings.ScholarshipDeadline,
		DiscountAmount:         decimal.Zero,
		Tranches:               make([]models.TrancheStatus, 0, len(tranches)),
		Installments:           tranches,
		Payments:               payments,
		GeneratedAt:            s.now().UTC(),
	}

	var reduction *models.LastTrancheReduction
	if history.globalDiscount {
		r := s.engine.CalculateAmountsWithLastTrancheReduction(settings, student, tranches)
		reduction = &r
		status.AccountingPath = models.AccountingPathLastTrancheReduction
	}

	required := make([]decimal.Decimal, len(tranches))
	totalRequired := decimal.Zero
	for i, tranche := range tranches {
		required[i] = s.engine.resolver.Resolve(tranche, student, ResolveOptions{})
		if required[i].IsPositive() {
			totalRequired = totalRequired.Add(required[i])
		}
	}
	fullDiscount := reduction == nil && matchesFullDiscount(history.totalPaid, totalRequired, settings)

	for i, tranche := range tranches {
		if !required[i].IsPositive() {
			continue
		}
		input := installmentInput{
			tranche:      tranche,
			required:     required[i],
			paid:         history.paidByTranche[tranche.ID],
			scholarship:  ScholarshipForTranche(scholarships, tranche.ID),
			fullDiscount: fullDiscount,
			recorded:     history.recordedReductions[tranche.ID],
		}
		if reduction != nil {
			if row, ok := reduction.ForTranche(tranche.ID); ok {
				input.reduction = &row
			}
		}
		line := installmentStatus(input)

		status.Tranches = append(status.Tranches, line)
		status.TotalRequired = status.TotalRequired.Add(line.RequiredAmount)
		status.TotalEffectiveRequired = status.TotalEffectiveRequired.Add(line.EffectiveRequired)
		status.TotalPaid = status.TotalPaid.Add(line.PaidAmount)
		status.TotalScholarship = status.TotalScholarship.Add(line.ScholarshipAmount)
		status.TotalDiscount = status.TotalDiscount.Add(line.DiscountAmount)
	}

	status.TotalRemaining = money.NonNegative(status.TotalEffectiveRequired.Sub(status.TotalPaid))
	status.IsFullyPaid = money.AtLeast(status.TotalPaid, status.TotalEffectiveRequired, money.Cent)

	// Students without a class are normal payers.
	if settings.Configured() && student.HasClass() && !status.HasExistingPayments && status.TotalPaid.IsZero() && !status.HasScholarship {
		status.DiscountEligible = true
		status.DiscountAmount = money.RoundCents(money.Percent(status.TotalRemaining, settings.ReductionPercentage))
		status.AmountToPayWithDiscount = status.TotalRemaining.Sub(status.DiscountAmount)
	} else {
		status.AmountToPayWithDiscount = status.TotalRemaining
	}
	return status
}

type paymentHistory struct {
	totalPaid          decimal.Decimal
	paidByTranche      map[string]decimal.Decimal
	recordedReductions map[string]*models.PaymentDetail
	globalDiscount     bool
}

func summarizeHistory(payments []models.Payment) paymentHistory {
	history := paymentHistory{
		totalPaid:          decimal.Zero,
		paidByTranche:      make(map[string]decimal.Decimal),
		recordedReductions: make(map[string]*models.PaymentDetail),
	}
	for _, payment := range payments {
		for i := range payment.Details {
			detail := &payment.Details[i]
			history.totalPaid = history.totalPaid.Add(detail.AmountAllocated)
			history.paidByTranche[detail.TrancheID] = history.paidByTranche[detail.TrancheID].Add(detail.AmountAllocated)
			switch {
			case detail.Provenance == models.ProvenanceGlobalDiscount:
				history.globalDiscount = true
			case detail.WasReduced && detail.Provenance != models.ProvenanceClassScholarship:
				history.recordedReductions[detail.TrancheID] = detail
			}
		}
	}
	return history
}

// matchesFullDiscount recognises a history that settled every tranche at the discounted rate.
func matchesFullDiscount(totalPaid, totalRequired decimal.Decimal, settings *models.GlobalDiscountSettings) bool {
	pct := settings.Percentage()
	if !pct.IsPositive() || !totalPaid.IsPositive() {
		return false
	}
	return money.Equal(totalPaid, money.Discounted(totalRequired, pct), money.Unit)
}

type installmentInput struct {
	tranche      models.Tranche
	required     decimal.Decimal
	paid         decimal.Decimal
	scholarship  *models.ClassScholarship
	reduction    *models.TrancheReduction
	fullDiscount bool
	recorded     *models.PaymentDetail
}

// installmentStatus derives one breakdown line. The first matching rule wins: last tranche
// reduction, class scholarship, full discount, recorded reduction, then plain fee.
func installmentStatus(in installmentInput) models.TrancheStatus {
	line := models.TrancheStatus{
		TrancheID:         in.tranche.ID,
		Name:              in.tranche.Name,
		Order:             in.tranche.Order,
		RequiredAmount:    in.required,
		PaidAmount:        in.paid,
		ScholarshipAmount: decimal.Zero,
		DiscountAmount:    decimal.Zero,
		Basis:             models.TrancheBasisNormal,
	}

	switch {
	case in.reduction != nil:
		line.Basis = models.TrancheBasisLastTrancheReduction
		line.DiscountAmount = money.Min(in.reduction.ReductionApplied, in.required)
		line.EffectiveRequired = in.required.Sub(line.DiscountAmount)
		line.RemainingAmount = money.NonNegative(line.EffectiveRequired.Sub(in.paid))
		line.IsFullyPaid = money.AtLeast(in.paid, line.EffectiveRequired, money.Cent)
	case in.scholarship != nil:
		line.Basis = models.TrancheBasisScholarship
		line.ScholarshipAmount = money.Min(money.NonNegative(in.scholarship.Amount), in.required)
		line.EffectiveRequired = in.required.Sub(line.ScholarshipAmount)
		line.RemainingAmount = money.NonNegative(line.EffectiveRequired.Sub(in.paid))
		line.IsFullyPaid = money.AtLeast(in.paid.Add(line.ScholarshipAmount), in.required, money.Cent)
	case in.fullDiscount:
		line.Basis = models.TrancheBasisFullDiscount
		line.DiscountAmount = money.NonNegative(in.required.Sub(in.paid))
		line.EffectiveRequired = in.required.Sub(line.DiscountAmount)
		line.RemainingAmount = decimal.Zero
		line.IsFullyPaid = true
	case in.recorded != nil:
		line.Basis = models.TrancheBasisRecordedReduction
		line.DiscountAmount = money.Min(money.NonNegative(in.required.Sub(in.recorded.RequiredAmountAtTime)), in.required)
		line.EffectiveRequired = in.required.Sub(line.DiscountAmount)
		line.RemainingAmount = decimal.Zero
		line.IsFullyPaid = true
	default:
		line.EffectiveRequired = in.required
		line.RemainingAmount = money.NonNegative(in.required.Sub(in.paid))
		line.IsFullyPaid = money.AtLeast(in.paid, in.required, money.Cent)
	}
	return line
}
