package models

// ValidationMethod is the credential type a site accepts for access
type ValidationMethod string

const (
	MethodEmail      ValidationMethod = "email"
	MethodEmployeeID ValidationMethod = "employeeId"
	MethodSerialCard ValidationMethod = "serialCard"
	MethodMagicLink  ValidationMethod = "magicLink"
)

// Valid reports whether m is a known validation method
func (m ValidationMethod) Valid() bool {
	switch m {
	case MethodEmail, MethodEmployeeID, MethodSerialCard, MethodMagicLink:
		return true
	}
	return false
}

// Site is the storefront configuration relevant to access validation
type Site struct {
	ID                 string           `json:"id" yaml:"id"`
	Name               string           `json:"name" yaml:"name"`
	ValidationMethod   ValidationMethod `json:"validation_method" yaml:"validation_method"`
	WelcomePageEnabled bool             `json:"welcome_page_enabled" yaml:"welcome_page_enabled"`
}

// Employee is the identity returned by the remote verification service
type Employee struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// VerifyAccessRequest is the body sent to the remote identity verification endpoint
type VerifyAccessRequest struct {
	SiteID string           `json:"siteId"`
	Method ValidationMethod `json:"method"`
	Value  string           `json:"value"`
}

// VerifyAccessResponse is the remote identity verification result
type VerifyAccessResponse struct {
	Valid        bool      `json:"valid"`
	SessionToken string    `json:"sessionToken,omitempty"`
	Employee     *Employee `json:"employee,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// VerifyMagicLinkRequest is the body sent to the remote magic-link endpoint
type VerifyMagicLinkRequest struct {
	Token string `json:"token"`
}

// VerifyMagicLinkResponse is the remote magic-link verification result
type VerifyMagicLinkResponse struct {
	Valid        bool      `json:"valid"`
	SessionToken string    `json:"sessionToken,omitempty"`
	Employee     *Employee `json:"employee,omitempty"`
	SiteID       string    `json:"siteId,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// Ephemeral storage keys written after a successful verification
const (
	StorageKeySession = "employee_session"
	StorageKeyName    = "employee_name"
	StorageKeyEmail   = "employee_email"
	StorageKeyID      = "employee_id"
	StorageKeySiteID  = "site_id"
)
