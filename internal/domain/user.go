package domain

import "time"

// AuthProviderCredentials marks accounts registered with email/password;
// anything else is a third-party identity provider.
const AuthProviderCredentials = "credentials"

// UserProfile is the slice of the account record the risk scorer needs.
// PriorPaidOrders is assembled from the order index at lookup time, not
// stored on the user document.
type UserProfile struct {
	UserID          string    `json:"user_id" dynamodbav:"user_id"`
	CreatedAt       time.Time `json:"created_at" dynamodbav:"created_at"`
	AuthProvider    string    `json:"auth_provider" dynamodbav:"auth_provider"`
	Phone           string    `json:"phone,omitempty" dynamodbav:"phone,omitempty"`
	PriorPaidOrders int       `json:"prior_paid_orders" dynamodbav:"-"`
}

// ThirdPartyLogin reports whether the account came through an external
// identity provider rather than direct registration.
func (u *UserProfile) ThirdPartyLogin() bool {
	return u.AuthProvider != "" && u.AuthProvider != AuthProviderCredentials
}
