package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSeverity_Order tests that the tier order is semantic > phrasing > syntax > formatting.
func TestSeverity_Order(t *testing.T) {
	assert.Greater(t, SeveritySemantic, SeverityPhrasing)
	assert.Greater(t, SeverityPhrasing, SeveritySyntax)
	assert.Greater(t, SeveritySyntax, SeverityFormatting)
}

// TestSeverity_String tests display names.
func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "semantic", SeveritySemantic.String())
	assert.Equal(t, "phrasing", SeverityPhrasing.String())
	assert.Equal(t, "syntax", SeveritySyntax.String())
	assert.Equal(t, "formatting", SeverityFormatting.String())
	assert.Equal(t, "unknown", Severity(0).String())
}

// TestDiagnosisItem_TopSeverity tests the highest-tier helper.
func TestDiagnosisItem_TopSeverity(t *testing.T) {
	item := DiagnosisItem{
		Warnings: []Warning{
			{Kind: SignalWordRarity, Severity: SeverityPhrasing},
			{Kind: SignalSemantic, Severity: SeveritySemantic},
			{Kind: SignalSyntax, Severity: SeveritySyntax},
		},
	}
	assert.Equal(t, SeveritySemantic, item.TopSeverity())
}

// TestDiagnosisItem_TopSeverity_NoWarnings tests the zero case.
func TestDiagnosisItem_TopSeverity_NoWarnings(t *testing.T) {
	item := DiagnosisItem{Sentence: "clean sentence"}
	assert.Equal(t, Severity(0), item.TopSeverity())
}
