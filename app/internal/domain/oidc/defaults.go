package oidc

// DefaultSecret is the shared secret of the demo clients.
const DefaultSecret = "secret"

func DefaultIdentityResources() []IdentityResource {
	return []IdentityResource{
		{Name: ScopeOpenID, DisplayName: "Your user identifier", Required: true, UserClaims: []string{"sub"}},
		{Name: "profile", DisplayName: "User profile", UserClaims: []string{
			"name", "family_name", "given_name", "middle_name", "nickname", "preferred_username",
			"profile", "picture", "website", "gender", "birthdate", "zoneinfo", "locale", "updated_at",
		}},
		{Name: "email", DisplayName: "Your email address", UserClaims: []string{"email", "email_verified"}},
		{Name: "address", DisplayName: "Your postal address", UserClaims: []string{"address"}},
		{Name: "roles", DisplayName: "Your role(s)", UserClaims: []string{"role"}},
	}
}

func DefaultAPIResources() []APIResource {
	return []APIResource{
		{Name: "api1", DisplayName: "My API", UserClaims: []string{"name", "email", "role", "permission"}},
	}
}

func DefaultClients() []*Client {
	return []*Client{
		{
			ClientID:            "client",
			ClientName:          "Client Credentials Client",
			SecretHashes:        []string{HashSecret(DefaultSecret)},
			RequireClientSecret: true,
			AllowedGrantTypes:   []string{GrantClientCredentials},
			AllowedScopes:       []string{"api1"},
		},
		{
			ClientID:            "ro.client",
			ClientName:          "Resource Owner Client",
			SecretHashes:        []string{HashSecret(DefaultSecret)},
			RequireClientSecret: true,
			AllowedGrantTypes:   []string{GrantPassword},
			AllowedScopes:       []string{ScopeOpenID, "profile", "email", "address", "roles", "api1"},
		},
	}
}

// DefaultRegistry is the registry the server runs with.
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultIdentityResources(), DefaultAPIResources(), DefaultClients())
}
