package mdpresent

import (
	"fmt"
	"strings"
	"time"
)

// RenderText 生成纯文本报告（报告导出使用）
func RenderText(v ResultView, generatedAt time.Time) string {
	var b strings.Builder

	b.WriteString("LeafSense Scan Report\n")
	b.WriteString("=====================\n")
	if v.ScanID != "" {
		fmt.Fprintf(&b, "Scan ID:     %s\n", v.ScanID)
	}
	fmt.Fprintf(&b, "Generated:   %s\n\n", generatedAt.UTC().Format(time.RFC3339))

	fmt.Fprintf(&b, "Crop:        %s\n", v.Crop)
	fmt.Fprintf(&b, "Diagnosis:   %s\n", v.Diagnosis)
	fmt.Fprintf(&b, "Confidence:  %s\n", v.ConfidenceText)
	fmt.Fprintf(&b, "Severity:    %s\n", v.Severity)
	fmt.Fprintf(&b, "Tier:        %s\n", v.Tier)
	fmt.Fprintf(&b, "Risk Index:  %s\n", v.RiskIndex)
	fmt.Fprintf(&b, "Progression: %s\n", v.Progression)

	if v.Uncertainty != nil {
		fmt.Fprintf(&b, "\n! %s: %s\n", v.Uncertainty.Title, v.Uncertainty.Message)
	}

	if len(v.Alternatives) > 0 {
		b.WriteString("\nAlternative Diagnoses:\n")
		for _, alt := range v.Alternatives {
			fmt.Fprintf(&b, "  - %s (%s)\n", alt.Label, alt.ConfidenceText)
		}
	}

	if a := v.Advisory; a != nil {
		b.WriteString("\nAdvisory:\n")
		fmt.Fprintf(&b, "  Cause:            %s\n", a.Cause)
		fmt.Fprintf(&b, "  Immediate Action: %s\n", a.ImmediateAction)
		fmt.Fprintf(&b, "  Crop Loss Risk:   %s\n", a.CropLossRisk)
		writeList(&b, "Treatment Plan", a.TreatmentSteps, true)
		writeList(&b, "Prevention", a.PreventionTips, false)
		if a.ConsultExpert {
			b.WriteString("  Expert Consultation Recommended\n")
		}
	}

	return b.String()
}

func writeList(b *strings.Builder, title string, items []string, numbered bool) {
	if len(items) == 0 {
		fmt.Fprintf(b, "  %s: %s\n", title, PlaceholderNA)
		return
	}
	fmt.Fprintf(b, "  %s:\n", title)
	for i, item := range items {
		if numbered {
			fmt.Fprintf(b, "    %d. %s\n", i+1, item)
		} else {
			fmt.Fprintf(b, "    - %s\n", item)
		}
	}
}
