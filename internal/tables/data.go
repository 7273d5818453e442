package tables

// Default keys used when a requested key is missing from a table.
const (
	DefaultCountry = "US"
	DefaultState   = "CA"
	DefaultGender  = "neutral"
)

// Genders are the first-name buckets every first-name table must carry.
var Genders = []string{"male", "female", "neutral"}

func defaultFirstNames() map[string][]string {
	return map[string][]string{
		"male": {
			"John", "Michael", "James", "Robert", "David", "William", "Richard", "Joseph",
			"Thomas", "Daniel", "Matthew", "Anthony", "Mark", "Steven", "Paul", "Andrew",
			"Rahul", "Arjun", "Vikram", "Rohan",
		},
		"female": {
			"Mary", "Sarah", "Patricia", "Jennifer", "Linda", "Elizabeth", "Barbara", "Susan",
			"Jessica", "Karen", "Nancy", "Lisa", "Emily", "Michelle", "Laura", "Rachel",
			"Priya", "Ananya", "Kavya", "Meera",
		},
		"neutral": {
			"Alex", "Taylor", "Jordan", "Casey", "Riley", "Morgan", "Jamie", "Avery",
			"Quinn", "Rowan", "Skyler", "Dakota", "Reese", "Emerson", "Finley", "Hayden",
		},
	}
}

func defaultLastNames() map[string][]string {
	return map[string][]string{
		"US": {
			"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
			"Wilson", "Anderson", "Taylor", "Moore", "Jackson", "Martin", "Lee", "Thompson",
		},
		"in": {
			"Sharma", "Verma", "Patel", "Gupta", "Singh", "Kumar", "Reddy", "Iyer",
			"Nair", "Joshi", "Mehta", "Chopra",
		},
	}
}

func defaultDomains() []string {
	return []string{"example.com", "test.org"}
}

func defaultStreets() map[string][]string {
	return map[string][]string{
		"US": {"Main St", "Elm St", "Oak Ave", "Maple Dr", "Cedar Ln", "Park Ave", "Pine St", "Lake Rd"},
		"in": {"MG Road", "Park Ave", "Station Road", "Nehru Marg", "Church Street", "Link Road"},
	}
}

// defaultCities is keyed by state/region code.
func defaultCities() map[string][]string {
	return map[string][]string{
		"CA": {"San Francisco", "Los Angeles", "San Diego", "Sacramento"},
		"NY": {"New York", "Albany", "Buffalo", "Rochester"},
		"TX": {"Houston", "Austin", "Dallas", "San Antonio"},
		"MH": {"Mumbai", "Pune", "Nagpur"},
		"DL": {"New Delhi", "Dwarka"},
		"KA": {"Bengaluru", "Mysuru", "Mangaluru"},
	}
}

func defaultPhoneFormats() map[string]string {
	return map[string]string{
		"US": "+1-###-###-####",
		"in": "+91-#####-#####",
	}
}

// defaultStates maps a country to the states/regions addresses are drawn from.
// it has no file counterpart.
func defaultStates() map[string][]string {
	return map[string][]string{
		"US": {"CA", "NY", "TX"},
		"in": {"MH", "DL", "KA"},
	}
}
