package features

import (
	"fmt"
	"strings"
)

// SchemaVersion identifies the feature list shared with the training job.
// Bump it whenever a name is added, removed or reordered.
const SchemaVersion = "lexical-v1"

// Schema is the ordered list of feature names the classifier consumes.
type Schema []string

// Domain feature names derived from a DomainRecord.
const (
	DomainAge           = "domain_age"
	DomainLifespan      = "domain_lifespan"
	WhoisLookupFailed   = "whois_lookup_failed"
	WhoisTimeout        = "whois_timeout"
	WhoisDomainNotFound = "whois_domain_not_found"
	WhoisQuotaExceeded  = "whois_quota_exceeded"
	WhoisOtherError     = "whois_other_error"
)

// SchemaV1 is the canonical feature order. The classifier artifact's
// feature_names must match it byte for byte.
var SchemaV1 = Schema{
	"url_length",
	"hostname_length",
	"path_length",
	"fd_length",
	"count-",
	"count@",
	"count?",
	"count%",
	"count.",
	"count=",
	"count-http",
	"count-https",
	"count-www",
	"count-digits",
	"count-letters",
	"count-dir",
	"has_ip",
	"has_shortening",
	"keyword_count",
	"has_brand_name",
	"brand_in_subdomain",
	"brand_not_in_domain",
	"suspicious_tld",
	"url_entropy",
	"domain_entropy",
	"path_to_url_ratio",
	"letters_to_length_ratio",
	"digits_to_length_ratio",
	DomainAge,
	DomainLifespan,
	WhoisLookupFailed,
	WhoisTimeout,
	WhoisDomainNotFound,
	WhoisQuotaExceeded,
	WhoisOtherError,
}

// Index returns the position of name in the schema, or -1.
func (s Schema) Index(name string) int {
	for i, n := range s {
		if n == name {
			return i
		}
	}
	return -1
}

// CheckSchema verifies that the names a model was trained on are exactly
// the names the assembler produces, in the same order.
func CheckSchema(modelNames []string, schema Schema) error {
	if len(modelNames) != len(schema) {
		return fmt.Errorf("feature schema mismatch: model has %d features, schema %s has %d",
			len(modelNames), SchemaVersion, len(schema))
	}

	var diffs []string
	for i := range schema {
		if modelNames[i] != schema[i] {
			diffs = append(diffs, fmt.Sprintf("#%d model=%q schema=%q", i, modelNames[i], schema[i]))
		}
	}
	if len(diffs) > 0 {
		return fmt.Errorf("feature schema mismatch (%s): %s", SchemaVersion, strings.Join(diffs, "; "))
	}
	return nil
}
