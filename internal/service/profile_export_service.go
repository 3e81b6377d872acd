package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/financial-coach-api/internal/dto"
	appErrors "github.com/noah-isme/financial-coach-api/pkg/errors"
	"github.com/noah-isme/financial-coach-api/pkg/export"
)

type profileReader interface {
	Get(ctx context.Context, userID string) (*dto.UserProfileResponse, error)
}

// ProfileExport is a rendered profile document.
type ProfileExport struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ProfileExportService renders a user's profile as CSV or PDF.
type ProfileExportService struct {
	profiles profileReader
	csv      export.Renderer
	pdf      export.Renderer
	logger   *zap.Logger
}

// NewProfileExportService constructs a ProfileExportService. Nil renderers fall back to the defaults.
func NewProfileExportService(profiles profileReader, csv, pdf export.Renderer, logger *zap.Logger) *ProfileExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter("financial-coach-api")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileExportService{profiles: profiles, csv: csv, pdf: pdf, logger: logger}
}

// Export renders the profile of userID in the requested format.
func (s *ProfileExportService) Export(ctx context.Context, userID string, format export.Format) (*ProfileExport, error) {
	var renderer export.Renderer
	switch export.Format(strings.ToLower(string(format))) {
	case export.FormatCSV:
		format, renderer = export.FormatCSV, s.csv
	case export.FormatPDF:
		format, renderer = export.FormatPDF, s.pdf
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	data, err := renderer.Render(profileDataset(profile))
	if err != nil {
		s.logger.Error("profile export failed", zap.String("user_id", userID), zap.String("format", string(format)), zap.Error(err))
		return nil, internalError(err, "failed to render profile")
	}
	return &ProfileExport{
		Filename:    fmt.Sprintf("profile-%s.%s", userID, format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

func profileDataset(p *dto.UserProfileResponse) export.Dataset {
	headers := []string{"Field", "Value"}
	rows := make([]map[string]string, 0, 16)
	add := func(field, value string) {
		rows = append(rows, map[string]string{"Field": field, "Value": value})
	}

	add("Email", p.Email)
	add("Full name", deref(p.FullName))
	if p.Age != nil {
		add("Age", strconv.Itoa(*p.Age))
	} else {
		add("Age", "")
	}
	add("Occupation", deref(p.Occupation))
	add("Country", deref(p.Country))
	add("City", deref(p.City))
	add("Monthly income", formatAmount(p.MonthlyIncome))
	add("Monthly savings", formatAmount(p.MonthlySavings))
	add("Savings rate (%)", formatAmount(p.SavingsRate))
	add("Risk tolerance", deref(p.RiskTolerance))
	add("Financial goals", strings.Join(p.FinancialGoals, "; "))

	categories := make([]string, 0, len(p.BudgetCategories))
	for name, amount := range p.BudgetCategories {
		categories = append(categories, fmt.Sprintf("%s=%.2f", name, amount))
	}
	sort.Strings(categories)
	add("Budget categories", strings.Join(categories, "; "))
	add("Preferred language", deref(p.PreferredLanguage))
	add("Currency", deref(p.Currency))
	add("Onboarding completed", strconv.FormatBool(p.HasCompletedOnboarding))

	return export.Dataset{Title: "Financial profile", Headers: headers, Rows: rows}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatAmount(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
