package model

// Permission slugs. Route guards reference these constants; the seeded
// permission rows use the same slugs. Authorization is pure set membership,
// the administrator role is simply granted every slug here.
const (
	PermUsersManage = "users.manage"
	PermRolesManage = "roles.manage"

	PermPatientsView   = "patients.view"
	PermPatientsCreate = "patients.create"
	PermPatientsUpdate = "patients.update"
	PermPatientsDelete = "patients.delete"

	PermAppointmentsView   = "appointments.view"
	PermAppointmentsCreate = "appointments.create"
	PermAppointmentsUpdate = "appointments.update"
	PermAppointmentsAttend = "appointments.attend"

	PermFacilityView   = "facility.view"
	PermFacilityManage = "facility.manage"

	PermBillingView           = "billing.view"
	PermBillingManageServices = "billing.manage_services"
	PermBillingCreateInvoice  = "billing.create_invoice"
	PermBillingProcessPayment = "billing.process_payment"

	PermReportsView = "reports.view"
)

// AllPermissionSlugs lists every permission the system knows about, in
// display order.
func AllPermissionSlugs() []string {
	return []string{
		PermUsersManage,
		PermRolesManage,
		PermPatientsView,
		PermPatientsCreate,
		PermPatientsUpdate,
		PermPatientsDelete,
		PermAppointmentsView,
		PermAppointmentsCreate,
		PermAppointmentsUpdate,
		PermAppointmentsAttend,
		PermFacilityView,
		PermFacilityManage,
		PermBillingView,
		PermBillingManageServices,
		PermBillingCreateInvoice,
		PermBillingProcessPayment,
		PermReportsView,
	}
}

// DefaultRolePermissions maps each seeded system role to its permission
// slugs. The administrator mapping is generated, not enumerated, so a new
// permission is never silently missing from it.
func DefaultRolePermissions() map[string][]string {
	return map[string][]string{
		RoleAdministrator: AllPermissionSlugs(),
		RoleDoctor: {
			PermPatientsView,
			PermAppointmentsView,
			PermAppointmentsAttend,
			PermFacilityView,
		},
		RoleNurse: {
			PermPatientsView,
			PermAppointmentsView,
			PermFacilityView,
			PermFacilityManage,
		},
		RoleReception: {
			PermPatientsView,
			PermPatientsCreate,
			PermPatientsUpdate,
			PermAppointmentsView,
			PermAppointmentsCreate,
			PermAppointmentsUpdate,
			PermFacilityView,
		},
		RoleBilling: {
			PermPatientsView,
			PermBillingView,
			PermBillingManageServices,
			PermBillingCreateInvoice,
			PermBillingProcessPayment,
			PermReportsView,
		},
	}
}
