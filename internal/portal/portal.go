// Package portal decides what each back-office role sees after login.
package portal

import (
	"errors"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
)

var ErrNoPortal = errors.New("role has no back-office portal")

type Link struct {
	Title string `json:"title"`
	Path  string `json:"path"`
}

type Section struct {
	Title string `json:"title"`
	Links []Link `json:"links"`
}

// Portal is one of a closed set of variants, one per back-office role.
type Portal interface {
	Role() domain.Role
	Home() string
	Navigation() []Section
}

// For returns the portal of role.
func For(role domain.Role) (Portal, error) {
	switch role {
	case domain.RolePlatformAdmin:
		return PlatformAdmin{}, nil
	case domain.RoleOfficeAdmin:
		return OfficeAdmin{}, nil
	case domain.RoleAdvisor:
		return Advisor{}, nil
	}
	return nil, ErrNoPortal
}

var dashboard = Section{Title: "Overview", Links: []Link{{Title: "Dashboard", Path: "/dashboard"}}}

type PlatformAdmin struct{}

func (PlatformAdmin) Role() domain.Role { return domain.RolePlatformAdmin }
func (PlatformAdmin) Home() string      { return "/dashboard" }

func (PlatformAdmin) Navigation() []Section {
	return []Section{
		dashboard,
		{Title: "Directory", Links: []Link{
			{Title: "Offices", Path: "/offices"},
			{Title: "Administrators", Path: "/admins"},
			{Title: "Advisors", Path: "/advisors"},
			{Title: "Users", Path: "/users"},
		}},
		{Title: "Catalog", Links: []Link{
			{Title: "Insurance types", Path: "/insurance-types"},
			{Title: "Insurers", Path: "/insurers"},
		}},
		{Title: "Business", Links: []Link{
			{Title: "Policies", Path: "/insurances"},
		}},
	}
}

type OfficeAdmin struct{}

func (OfficeAdmin) Role() domain.Role { return domain.RoleOfficeAdmin }
func (OfficeAdmin) Home() string      { return "/dashboard" }

func (OfficeAdmin) Navigation() []Section {
	return []Section{
		dashboard,
		{Title: "My office", Links: []Link{
			{Title: "Advisors", Path: "/advisors"},
			{Title: "Clients", Path: "/users"},
		}},
		{Title: "Business", Links: []Link{
			{Title: "Policies", Path: "/insurances"},
		}},
	}
}

type Advisor struct{}

func (Advisor) Role() domain.Role { return domain.RoleAdvisor }
func (Advisor) Home() string      { return "/clients" }

func (Advisor) Navigation() []Section {
	return []Section{
		{Title: "Clients", Links: []Link{
			{Title: "My clients", Path: "/clients"},
			{Title: "Conversations", Path: "/conversations"},
		}},
		{Title: "Business", Links: []Link{
			{Title: "Policies", Path: "/insurances"},
		}},
	}
}
