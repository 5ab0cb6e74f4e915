package provision

import "strings"

// DeriveProjectName maps an actor's email to a deterministic project
// name: the local part lowercased, every character outside [a-z0-9-]
// replaced with '-', runs of '-' collapsed, leading/trailing '-'
// trimmed. Deterministic naming is what lets repeated deliveries of
// the same event converge on the same project.
func DeriveProjectName(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i >= 0 {
		local = email[:i]
	}
	local = strings.ToLower(local)

	var b strings.Builder
	pendingSep := false
	for _, r := range local {
		valid := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !valid {
			// Collapse any run of invalid characters (and literal
			// dashes) into a single separator, dropped at the edges.
			if b.Len() > 0 {
				pendingSep = true
			}
			continue
		}
		if pendingSep {
			b.WriteByte('-')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
