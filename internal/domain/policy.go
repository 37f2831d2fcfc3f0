package domain

// IssuancePolicyInput is what the issuance policy sees. Personal data is
// passed only as lengths so policy bundles never handle raw identifiers.
type IssuancePolicyInput struct {
	Issuer         string `json:"issuer"`
	Subject        string `json:"subject"`
	NameLength     int    `json:"name_length"`
	EmailLength    int    `json:"email_length"`
	EmailHasAt     bool   `json:"email_has_at"`
	Course         string `json:"course"`
	EnrollmentDate uint64 `json:"enrollment_date"`
	ContentPointer string `json:"content_pointer"`
	Now            int64  `json:"now"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}

type PolicyEvaluation struct {
	BundleID   string       `json:"bundle_id,omitempty"`
	BundleHash string       `json:"bundle_hash"`
	Result     PolicyResult `json:"result"`
}
