package main

import (
	"context"
	"errors"
	"log"

	"ems.org/internal/auth"
	"ems.org/internal/ems"
)

// seed creates the default accounts and departments on first start. All
// operations are idempotent: existing records are left alone.
func seed(ctx context.Context, authSvc *auth.Service, emsSvc *ems.Service) error {
	users := []auth.RegisterInput{
		{Email: "admin@ems.com", Password: "Admin@123", FirstName: "System", LastName: "Administrator", Role: auth.RoleAdmin},
		{Email: "manager@ems.com", Password: "Manager@123", FirstName: "Default", LastName: "Manager", Role: auth.RoleManager},
		{Email: "employee@ems.com", Password: "Employee@123", FirstName: "Default", LastName: "Employee", Role: auth.RoleEmployee},
	}
	for _, in := range users {
		if _, err := authSvc.Register(ctx, in); err != nil {
			if errors.Is(err, auth.ErrEmailTaken) {
				continue
			}
			return err
		}
		log.Printf("seeded user %s (%s)", in.Email, in.Role)
	}

	existing, err := emsSvc.ListDepartments(ctx)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, d := range existing {
		have[d.Code] = true
	}
	departments := []ems.DepartmentInput{
		{Name: "Information Technology", Code: "IT", Description: "Engineering and infrastructure"},
		{Name: "Human Resources", Code: "HR", Description: "People operations"},
		{Name: "Finance", Code: "FIN", Description: "Accounting and payroll"},
	}
	for _, in := range departments {
		if have[in.Code] {
			continue
		}
		if _, err := emsSvc.CreateDepartment(ctx, in); err != nil {
			return err
		}
		log.Printf("seeded department %s", in.Code)
	}
	return nil
}
