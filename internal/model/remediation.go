package model

// Status classifies the outcome of an extraction request.
type Status string

const (
	StatusSuccess       Status = "success"
	StatusParserFail    Status = "parser_fail"
	StatusBlockedBySite Status = "blocked_by_site"
	StatusDeadURL       Status = "dead_url"
	StatusProviderError Status = "provider_error"
	StatusRateLimited   Status = "rate_limited"
)

// Remediation is the recommended operator action for a non-success outcome.
type Remediation string

const (
	RemediationNone               Remediation = "none"
	RemediationSiteSpecificParser Remediation = "site_specific_parser"
	RemediationManualQA           Remediation = "manual_qa"
	RemediationFixURL             Remediation = "fix_url"
	RemediationRotateKey          Remediation = "rotate_key"
	RemediationUpgradePlan        Remediation = "upgrade_plan"
	RemediationSwitchProvider     Remediation = "switch_provider"
)

// RemediationResult pairs an outcome status with its remediation.
type RemediationResult struct {
	Status      Status      `json:"status"`
	Remediation Remediation `json:"remediation"`
	Notes       string      `json:"notes,omitempty"`
}
