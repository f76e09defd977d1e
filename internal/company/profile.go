package company

// Profile describes the bidding company presented in a technical memory.
type Profile struct {
	Name           string             `json:"name"`
	SIRET          string             `json:"siret"`
	Address        string             `json:"address"`
	Phone          string             `json:"phone"`
	Email          string             `json:"email"`
	Experience     string             `json:"experience"`
	Certifications []string           `json:"certifications"`
	References     []ProjectReference `json:"references,omitempty"`
}

// ProjectReference is one past project the company can cite.
type ProjectReference struct {
	Title       string `json:"title"`
	Client      string `json:"client"`
	Year        int    `json:"year"`
	Description string `json:"description"`
}

// DefaultProfile is used when the caller supplies no company information.
func DefaultProfile() Profile {
	return Profile{
		Name:       "Entreprise de Restauration du Patrimoine",
		SIRET:      "12345678901234",
		Address:    "123 Rue du Patrimoine, 75001 Paris",
		Phone:      "01 23 45 67 89",
		Email:      "contact@restauration-patrimoine.fr",
		Experience: "15 ans d'expérience en restauration de monuments historiques",
		Certifications: []string{
			"Qualibat 1511",
			"Monuments Historiques",
			"ISO 9001",
		},
	}
}

// Complete reports whether the profile carries enough identity to present.
func (p Profile) Complete() bool {
	return p.Name != "" && p.SIRET != ""
}

// OrDefault returns the profile itself when complete, the default otherwise.
func (p Profile) OrDefault() Profile {
	if p.Complete() {
		return p
	}
	return DefaultProfile()
}
