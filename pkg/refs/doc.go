// Package refs scans scalar strings for ${dotted.path} references,
// including the ${dotted.path:-default} fallback form. The scanner is
// purely lexical: it records what was referenced and where, and never
// touches a document.
package refs
