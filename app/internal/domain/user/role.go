package user

// RoleAdmin is the role that gates the admin management and claims endpoints.
const RoleAdmin = "Admin"
