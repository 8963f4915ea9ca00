package roster

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// ENTITY KINDS AND FAMILIES
// ============================================================================

// EntityKind identifies what kind of roster member an entity is.
type EntityKind string

const (
	EntityWrestler EntityKind = "WRESTLER"
	EntityReferee  EntityKind = "REFEREE"
	EntityTagTeam  EntityKind = "TAG_TEAM"
	EntityTitle    EntityKind = "TITLE"
	EntityStable   EntityKind = "STABLE"
)

// IsValid checks if the entity kind is known.
func (k EntityKind) IsValid() bool {
	switch k {
	case EntityWrestler, EntityReferee, EntityTagTeam, EntityTitle, EntityStable:
		return true
	default:
		return false
	}
}

// Family returns the status family the entity kind belongs to.
func (k EntityKind) Family() Family {
	switch k {
	case EntityTitle, EntityStable:
		return FamilyActivation
	default:
		return FamilyEmployment
	}
}

// Family groups entity kinds that share period kinds and resolution rules.
type Family string

const (
	// FamilyEmployment covers wrestlers, referees and tag teams: entities
	// that are hired, suspended, injured, released and retired.
	FamilyEmployment Family = "EMPLOYMENT"
	// FamilyActivation covers titles and stables: entities that are
	// introduced, pulled from programming and retired.
	FamilyActivation Family = "ACTIVATION"
)

// FamilyConfig declares which period kinds apply to a family and what
// un-retiring reopens. Resolution precedence itself lives in the resolver.
type FamilyConfig struct {
	Kinds []PeriodKind
	// UnretireOpens is the period kind a successful Unretire opens after
	// closing the retirement period. Employment-family entities go straight
	// back on the active roster; activation-family entities resume
	// programming.
	UnretireOpens PeriodKind
	// StartOpens is the period kind opened when an entity is created with a
	// start date.
	StartOpens PeriodKind
}

var familyConfigs = map[Family]FamilyConfig{
	FamilyEmployment: {
		Kinds:         []PeriodKind{KindEmployment, KindSuspension, KindInjury, KindRetirement, KindMembership},
		UnretireOpens: KindEmployment,
		StartOpens:    KindEmployment,
	},
	FamilyActivation: {
		Kinds:         []PeriodKind{KindActivity, KindRetirement},
		UnretireOpens: KindActivity,
		StartOpens:    KindActivity,
	},
}

// Config returns the period-kind configuration for the family.
func (f Family) Config() FamilyConfig {
	return familyConfigs[f]
}

// Tracks reports whether the family records periods of the given kind.
func (f Family) Tracks(kind PeriodKind) bool {
	for _, k := range f.Config().Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ============================================================================
// STATUS
// ============================================================================

// Status is the single discrete standing of an entity. It is always derived
// from period history by the resolver and never stored.
type Status string

const (
	// Employment family.
	StatusUnemployed       Status = "UNEMPLOYED"
	StatusFutureEmployment Status = "FUTURE_EMPLOYMENT"
	StatusEmployed         Status = "EMPLOYED"
	StatusInjured          Status = "INJURED"
	StatusSuspended        Status = "SUSPENDED"
	StatusReleased         Status = "RELEASED"
	StatusRetired          Status = "RETIRED"

	// Activation family.
	StatusUnactivated Status = "UNACTIVATED"
	StatusActive      Status = "ACTIVE"
	StatusInactive    Status = "INACTIVE"
)

// ============================================================================
// ENTITY
// ============================================================================

// Entity is one roster member. Status is resolved on read, never persisted.
type Entity struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Kind      EntityKind `json:"kind" db:"kind"`
	Name      string     `json:"name" db:"name"`
	Status    Status     `json:"status,omitempty" db:"-"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Family returns the entity's status family.
func (e *Entity) Family() Family {
	return e.Kind.Family()
}
