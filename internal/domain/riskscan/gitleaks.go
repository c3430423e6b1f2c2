package riskscan

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
)

// secretDetector lazily builds a gitleaks detector from gitleaks' own
// default TOML ruleset, mirroring the redaction layer's own detector
// construction. A construction failure disables enrichment rather than
// failing the scan; the fixed secret pattern list still applies.
var (
	secretDetector     *detect.Detector
	secretDetectorOnce sync.Once
)

func loadSecretDetector() *detect.Detector {
	secretDetectorOnce.Do(func() {
		v := viper.New()
		v.SetConfigType("toml")
		if err := v.ReadConfig(strings.NewReader(config.DefaultConfig)); err != nil {
			return
		}
		var vc config.ViperConfig
		if err := v.Unmarshal(&vc); err != nil {
			return
		}
		cfg, err := vc.Translate()
		if err != nil {
			return
		}
		secretDetector = detect.NewDetector(cfg)
	})
	return secretDetector
}

// ScanSkillContentEnriched runs ScanSkillContent and additionally records a
// secret finding for each gitleaks rule that fires over the same scripts and
// readme, using "gitleaks:" plus the rule's ID as the pattern label so
// findings stay deduplicated per (category, pattern).
func ScanSkillContentEnriched(scripts []string, readme string) []Finding {
	findings := ScanSkillContent(scripts, readme)

	detector := loadSecretDetector()
	if detector == nil {
		return findings
	}

	texts := append([]string{}, scripts...)
	if readme != "" {
		texts = append(texts, readme)
	}

	for _, text := range texts {
		for _, gf := range detector.Detect(detect.Fragment{Raw: text}) {
			pattern := fmt.Sprintf("gitleaks:%s", gf.RuleID)
			if !hasFinding(findings, CategorySecret, pattern) {
				findings = append(findings, Finding{Category: CategorySecret, Pattern: pattern})
			}
		}
	}

	return findings
}
