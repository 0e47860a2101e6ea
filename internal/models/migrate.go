package models

import "gorm.io/gorm"

// AllModels lists every table owned by the service.
func AllModels() []any {
	return []any{
		&User{},
		&Zone{},
		&Amenity{},
		&SosRequest{},
		&FamilyMember{},
		&FamilyInvitation{},
		&LostFound{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
