package attributes

// Dynamic post-processing constants.
const (
	defaultTotalBuildings = 1

	installationDateAuto   = "auto"
	installationMinDaysAgo = 1
	installationMaxDaysAgo = 730
	installationDateLayout = "2006-01-02T15:04:05Z"
	attrTotalBuildings     = "total_buildings"
	attrInstallationDate   = "installation_date"
)

// applyDynamicValues fills derived asset attributes in place.
//
//   - total_buildings present but null becomes 1
//   - installation_date "auto" becomes a UTC timestamp 1..730 days in the past
func applyDynamicValues(attrs map[string]any, r *resolver) {
	if v, ok := attrs[attrTotalBuildings]; ok && v == nil {
		attrs[attrTotalBuildings] = defaultTotalBuildings
	}

	if v, ok := attrs[attrInstallationDate]; ok && v == installationDateAuto {
		span := installationMaxDaysAgo - installationMinDaysAgo + 1
		days := installationMinDaysAgo + r.rng.IntN(span)
		installed := r.now.UTC().AddDate(0, 0, -days)
		attrs[attrInstallationDate] = installed.Format(installationDateLayout)
	}
}
