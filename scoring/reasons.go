package scoring

import (
	"fmt"

	"phisheye/domainintel"
	"phisheye/signals"
)

// NoIndicators is the highlight used when no rule fires.
const NoIndicators = "INSIGHT: No critical indicators were found."

var statusText = map[domainintel.Status]string{
	domainintel.StatusTimedOut:       "registry lookup timed out",
	domainintel.StatusNotFound:       "domain not found in the registry",
	domainintel.StatusRateLimited:    "registry rate limit reached",
	domainintel.StatusTransientError: "registry lookup failed",
}

// highlights builds the ordered reasoning list. Rule order is fixed: new
// domain, unresolvable domain, cross-origin form, missing mail server,
// look-alike host, model-only suspicion, trusted override.
func (c *Composer) highlights(p float64, rec domainintel.DomainRecord, aux signals.Set) []string {
	var out []string
	host := rec.Hostname
	if host == "" {
		host = aux.Host
	}

	if !aux.Trusted {
		switch {
		case rec.Status == domainintel.StatusResolved && rec.AgeDays >= 0 && rec.AgeDays < 30:
			out = append(out, fmt.Sprintf(
				"CRITICAL: Domain %s is brand new (%d days old), a primary indicator of a zero-day phishing site.", host, rec.AgeDays))
		case rec.Status == domainintel.StatusResolved && rec.AgeDays >= 30 && rec.AgeDays < 90:
			out = append(out, fmt.Sprintf("WARNING: Domain %s is only %d days old.", host, rec.AgeDays))
		}

		switch {
		case rec.Status.Failed():
			out = append(out, fmt.Sprintf(
				"HIGH RISK: Registration data for %s is unavailable (%s); an unknown domain age is treated as new.",
				host, statusText[rec.Status]))
		case rec.AgeDays < 0:
			out = append(out, fmt.Sprintf(
				"HIGH RISK: The registry did not report a creation date for %s; its age is treated as new.", host))
		}

		if aux.ContentRisk > 0 {
			target := "another site"
			if aux.Content != nil && aux.Content.FormActionHost != "" {
				target = aux.Content.FormActionHost
			}
			out = append(out, fmt.Sprintf("CRITICAL: A form on this page submits your data to an external domain (%s).", target))
		}

		if aux.Mail != nil && aux.Mail.Checked && !aux.Mail.HasMX {
			out = append(out, "HIGH RISK: Domain has no mail server (MX) configured, common for throwaway phishing domains.")
		}

		if aux.Lookalike != "" {
			out = append(out, fmt.Sprintf("HIGH RISK: %s looks like an imitation of the trusted domain %s.", host, aux.Lookalike))
		}
	}

	if len(out) == 0 && p >= c.highProbability {
		out = append(out, fmt.Sprintf(
			"HIGH RISK: URL structure matches known phishing patterns (model probability %.2f).", p))
	}

	if aux.Trusted {
		out = append(out, fmt.Sprintf(
			"TRUSTED: %s is on the trusted-domain list; domain age and page content were not counted against it.", aux.Host))
	}

	if len(out) == 0 {
		return []string{NoIndicators}
	}
	return out
}
