package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-billing/internal/models"
	"github.com/noah-isme/sma-adp-billing/pkg/money"
)

// ScholarshipLookup reads the active scholarships of a class.
type ScholarshipLookup interface {
	ListActiveByClass(ctx context.Context, classID string) ([]models.ClassScholarship, error)
}

// DiscountEngine decides which reduction a student is entitled to and prices it.
// Discount settings are passed per call so one engine serves any configuration.
type DiscountEngine struct {
	scholarships ScholarshipLookup
	resolver     *TrancheAmountResolver
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewDiscountEngine constructs a DiscountEngine.
func NewDiscountEngine(scholarships ScholarshipLookup, resolver *TrancheAmountResolver, metrics *MetricsService, logger *zap.Logger) *DiscountEngine {
	if resolver == nil {
		resolver = NewTrancheAmountResolver()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscountEngine{scholarships: scholarships, resolver: resolver, metrics: metrics, logger: logger}
}

// ClassScholarships returns the active scholarships the student benefits from.
// Students with the scholarship flag off or without a class get none.
func (e *DiscountEngine) ClassScholarships(ctx context.Context, student *models.BillingStudent) ([]models.ClassScholarship, error) {
	if student == nil || !student.ScholarshipEnabled || !student.HasClass() || e.scholarships == nil {
		return nil, nil
	}
	rows, err := e.scholarships.ListActiveByClass(ctx, student.Class())
	if err != nil {
		return nil, fmt.Errorf("load class scholarships: %w", err)
	}
	result := make([]models.ClassScholarship, 0, len(rows))
	for _, row := range rows {
		if row.Active && row.ClassID == student.Class() {
			result = append(result, row)
		}
	}
	return result, nil
}

// ClassScholarship returns the first active scholarship of the student's class, or nil.
func (e *DiscountEngine) ClassScholarship(ctx context.Context, student *models.BillingStudent) (*models.ClassScholarship, error) {
	scholarships, err := e.ClassScholarships(ctx, student)
	if err != nil {
		return nil, err
	}
	if len(scholarships) == 0 {
		return nil, nil
	}
	if len(scholarships) > 1 {
		e.logger.Debug("class has several active scholarships", zap.String("class_id", student.Class()), zap.Int("count", len(scholarships)))
	}
	return &scholarships[0], nil
}

// ScholarshipForTranche picks the scholarship targeting trancheID.
func ScholarshipForTranche(scholarships []models.ClassScholarship, trancheID string) *models.ClassScholarship {
	for i := range scholarships {
		if scholarships[i].Active && scholarships[i].TrancheID == trancheID {
			return &scholarships[i]
		}
	}
	return nil
}

// IsEligibleForGlobalDiscount reports whether a payment of amountToPay on paymentDate settles
// the whole balance at the discounted rate. The student must be enrolled in a class, hold no
// class scholarship and have no previous payment. The date must not be after the deadline.
func (e *DiscountEngine) IsEligibleForGlobalDiscount(ctx context.Context, settings *models.GlobalDiscountSettings, student *models.BillingStudent, amountToPay, totalRemaining decimal.Decimal, paymentDate time.Time, hasExistingPayments bool) (bool, error) {
	eligible, err := e.globalDiscountEligible(ctx, settings, student, amountToPay, totalRemaining, paymentDate, hasExistingPayments)
	if err != nil {
		return false, err
	}
	e.metrics.RecordDiscountEligibility(eligible)
	return eligible, nil
}

func (e *DiscountEngine) globalDiscountEligible(ctx context.Context, settings *models.GlobalDiscountSettings, student *models.BillingStudent, amountToPay, totalRemaining decimal.Decimal, paymentDate time.Time, hasExistingPayments bool) (bool, error) {
	if !settings.Configured() || !student.HasClass() {
		return false, nil
	}
	scholarship, err := e.ClassScholarship(ctx, student)
	if err != nil {
		return false, err
	}
	if scholarship != nil || hasExistingPayments {
		return false, nil
	}
	expected := money.Discounted(totalRemaining, settings.ReductionPercentage)
	if !money.Equal(amountToPay, expected, money.Cent) {
		return false, nil
	}
	return !civilDay(paymentDate).After(civilDay(*settings.ScholarshipDeadline)), nil
}

// CalculateAmountsWithLastTrancheReduction spreads the global discount over the tranches,
// consuming the highest order first. Rows keep the order of tranches.
func (e *DiscountEngine) CalculateAmountsWithLastTrancheReduction(settings *models.GlobalDiscountSettings, student *models.BillingStudent, tranches []models.Tranche) models.LastTrancheReduction {
	rows := make([]models.TrancheReduction, len(tranches))
	for i, tranche := range tranches {
		normal := e.resolver.Resolve(tranche, student, ResolveOptions{})
		rows[i] = models.TrancheReduction{
			TrancheID:        tranche.ID,
			Name:             tranche.Name,
			Order:            tranche.Order,
			NormalAmount:     normal,
			ReducedAmount:    normal,
			ReductionApplied: decimal.Zero,
		}
	}
	return distributeFromLast(rows, settings.Percentage())
}

// distributeFromLast applies round(sum * pct / 100) to rows from the highest order backward.
func distributeFromLast(rows []models.TrancheReduction, pct decimal.Decimal) models.LastTrancheReduction {
	if !pct.IsPositive() {
		return models.LastTrancheReduction{Tranches: rows, TotalReduction: decimal.Zero, Unconsumed: decimal.Zero}
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.NormalAmount)
	}
	return spreadFromLast(rows, money.RoundUnits(money.Percent(total, pct)))
}

// spreadFromLast consumes reduction from the highest order backward, each row capped at its own amount.
func spreadFromLast(rows []models.TrancheReduction, reduction decimal.Decimal) models.LastTrancheReduction {
	result := models.LastTrancheReduction{Tranches: rows, TotalReduction: reduction, Unconsumed: decimal.Zero}

	byOrderDesc := make([]int, len(rows))
	for i := range rows {
		byOrderDesc[i] = i
	}
	sort.SliceStable(byOrderDesc, func(a, b int) bool {
		return rows[byOrderDesc[a]].Order > rows[byOrderDesc[b]].Order
	})

	left := reduction
	for _, idx := range byOrderDesc {
		if !left.IsPositive() {
			break
		}
		applied := money.Min(left, money.NonNegative(rows[idx].NormalAmount))
		rows[idx].ReductionApplied = applied
		rows[idx].ReducedAmount = rows[idx].NormalAmount.Sub(applied)
		left = left.Sub(applied)
	}
	result.Unconsumed = money.NonNegative(left)
	return result
}

// PaymentType classifies the payer. A class scholarship wins over the global discount.
func (e *DiscountEngine) PaymentType(ctx context.Context, settings *models.GlobalDiscountSettings, student *models.BillingStudent, amount, totalRemaining decimal.Decimal, paymentDate time.Time, hasExistingPayments bool) (models.PaymentType, error) {
	scholarship, err := e.ClassScholarship(ctx, student)
	if err != nil {
		return "", err
	}
	if scholarship != nil {
		return models.PaymentTypeScholarship, nil
	}
	eligible, err := e.IsEligibleForGlobalDiscount(ctx, settings, student, amount, totalRemaining, paymentDate, hasExistingPayments)
	if err != nil {
		return "", err
	}
	if eligible {
		return models.PaymentTypeGlobalDiscount, nil
	}
	return models.PaymentTypeNormal, nil
}

// CalculateFinalPayment prices a prospective payment of amount against totalRemaining.
func (e *DiscountEngine) CalculateFinalPayment(ctx context.Context, settings *models.GlobalDiscountSettings, student *models.BillingStudent, amount, totalRemaining decimal.Decimal, paymentDate time.Time, hasExistingPayments bool) (models.FinalPayment, error) {
	paymentType, err := e.PaymentType(ctx, settings, student, amount, totalRemaining, paymentDate, hasExistingPayments)
	if err != nil {
		return models.FinalPayment{}, err
	}
	final := models.FinalPayment{
		FinalAmount:     amount,
		ReductionAmount: decimal.Zero,
		PaymentType:     paymentType,
	}
	if paymentType == models.PaymentTypeGlobalDiscount {
		final.HasReduction = true
		final.ReductionAmount = money.RoundCents(money.Percent(totalRemaining, settings.Percentage()))
	}
	return final, nil
}

// PlanAllocation splits a priced payment over the open tranches of status, lowest order
// first, and stamps each draft detail with the provenance of its required amount. A global
// discount payment spreads exactly final.ReductionAmount from the last tranche backward, so
// the drafts add up to the quoted price. It returns the drafts and the part of the payment
// left once every tranche is covered.
func (e *DiscountEngine) PlanAllocation(status *models.PaymentStatus, final models.FinalPayment) ([]models.PaymentDetail, decimal.Decimal) {
	amount, paymentType := final.FinalAmount, final.PaymentType
	if status == nil || !amount.IsPositive() {
		return nil, money.NonNegative(amount)
	}

	lines := make([]models.TrancheStatus, len(status.Tranches))
	copy(lines, status.Tranches)
	sort.SliceStable(lines, func(a, b int) bool { return lines[a].Order < lines[b].Order })

	var reduction models.LastTrancheReduction
	if paymentType == models.PaymentTypeGlobalDiscount {
		rows := make([]models.TrancheReduction, len(lines))
		for i, line := range lines {
			rows[i] = models.TrancheReduction{
				TrancheID:        line.TrancheID,
				Name:             line.Name,
				Order:            line.Order,
				NormalAmount:     line.RequiredAmount,
				ReducedAmount:    line.RequiredAmount,
				ReductionApplied: decimal.Zero,
			}
		}
		reduction = spreadFromLast(rows, money.NonNegative(final.ReductionAmount))
	}

	left := amount
	details := make([]models.PaymentDetail, 0, len(lines))
	for _, line := range lines {
		if !left.IsPositive() {
			break
		}

		required := line.EffectiveRequired
		due := line.RemainingAmount
		provenance := models.ProvenanceNone
		reduced := false

		switch {
		case paymentType == models.PaymentTypeGlobalDiscount:
			row, _ := reduction.ForTranche(line.TrancheID)
			required = row.ReducedAmount
			due = money.NonNegative(required.Sub(line.PaidAmount))
			provenance = models.ProvenanceGlobalDiscount
			reduced = row.ReductionApplied.IsPositive()
		case line.ScholarshipAmount.IsPositive():
			provenance = models.ProvenanceClassScholarship
			reduced = true
		}

		if !due.IsPositive() {
			continue
		}
		allocated := money.Min(left, due)
		details = append(details, models.PaymentDetail{
			TrancheID:            line.TrancheID,
			AmountAllocated:      allocated,
			RequiredAmountAtTime: required,
			WasReduced:           reduced,
			Provenance:           provenance,
		})
		left = left.Sub(allocated)
	}
	return details, left
}

// civilDay truncates t to midnight of its own calendar day.
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
