package userrole

type UserRole struct {
	ID             string
	Name           string
	NormalizedName string
}
