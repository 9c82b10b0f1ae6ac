package models

// All lists every model in dependency order. Production schema comes from
// the SQL migrations; this list backs AutoMigrate in tests.
func All() []interface{} {
	return []interface{}{
		&User{},
		&SolarSystem{},
		&SolarContract{},
		&Payment{},
		&ForumTopic{},
		&SupportRequest{},
		&AccountInformation{},
		&LinkedAccount{},
		&ProfileBio{},
		&SavedPaymentMethod{},
		&ReminderLog{},
	}
}
