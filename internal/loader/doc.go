// Package loader resolves dotted chain names to definition files across an
// ordered list of search roots. "billing.monthly" is looked up as
// billing/monthly.hcl, billing/monthly.yml and billing/monthly.yaml in each
// root in turn; the first match wins. Loaded definitions are validated for
// unknown references and cycles, then cached.
package loader
