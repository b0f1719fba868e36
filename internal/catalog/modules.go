package catalog

// moduleTable is the deploy-time module catalog for the BCM platform. IDs are
// stable and must never be reused; aliases exist for the legacy names the
// older organization records still carry.
var moduleTable = []Module{
	{
		ID:            1,
		CanonicalName: "Business Impact Analysis",
		Aliases:       []string{"Business Impact Analysis", "BIA"},
	},
	{
		ID:            2,
		CanonicalName: "Crisis Management",
		Aliases:       []string{"Crisis Management", "Crisis Management Plan"},
	},
	{
		ID:            3,
		CanonicalName: "Risk Analysis",
		Aliases:       []string{"Risk Analysis", "Risk Assessment"},
	},
	{
		ID:            4,
		CanonicalName: "Process Mapping",
		Aliases:       []string{"Process Mapping"},
	},
	{
		ID:            5,
		CanonicalName: "Service Mapping",
		Aliases:       []string{"Service Mapping"},
	},
	{
		ID:            6,
		CanonicalName: "Process and Service Mapping",
		Aliases:       []string{"Process and Service Mapping"},
		Members:       []string{"Process Mapping", "Service Mapping"},
	},
	{
		ID:            7,
		CanonicalName: "Plan Development",
		Aliases:       []string{"Plan Development", "BCP Development"},
	},
	{
		ID:            8,
		CanonicalName: "Testing and Exercises",
		Aliases:       []string{"Testing and Exercises", "BC Exercises"},
	},
	{
		ID:            9,
		CanonicalName: "Emergency Notification",
		Aliases:       []string{"Emergency Notification", "Mass Notification"},
	},
	{
		ID:            10,
		CanonicalName: "Incident Management",
		Aliases:       []string{"Incident Management"},
	},
	{
		ID:            11,
		CanonicalName: "Vendor Continuity",
		Aliases:       []string{"Vendor Continuity", "Third Party Continuity"},
	},
	{
		ID:            12,
		CanonicalName: "Compliance Tracking",
		Aliases:       []string{"Compliance Tracking"},
	},
}
