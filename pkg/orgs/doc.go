// Package orgs stores organizations, the tenants of the system.
//
// Organizations are managed only from the CRM surface by global superadmins.
// Deleting an organization removes its users in the same transaction; their
// products survive with owner and organization cleared:
//
//	removed, err := svc.DeleteOrganization(ctx, orgID)
package orgs
