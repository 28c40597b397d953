package model

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Role classifies how a feature column is imputed and encoded.
type Role string

const (
	RoleNumeric Role = "numeric" // impute median, standardize
	RoleBinary  Role = "binary"  // fixed string->0/1 lookup, then numeric path
	RoleOrdinal Role = "ordinal" // impute mode, rank per explicit ordering
	RoleNominal Role = "nominal" // impute mode, one-hot with dropped baseline
)

// Well-known non-feature columns.
const (
	ColEmployeeID  = "id_employee"
	ColTargetText  = "a_quitte_l_entreprise"
	ColTarget      = "a_quitte_l_entreprise_numeric"
	ColCreatedAt   = "date_creation_enregistrement"
	ColModifiedAt  = "date_derniere_modification"
	ColSalaryRaise = "augementation_salaire_precedente"
)

// FieldSpec declares one feature column and its role-specific parameters.
type FieldSpec struct {
	Name     string             `yaml:"name" json:"name"`
	Role     Role               `yaml:"role" json:"role"`
	Binary   map[string]float64 `yaml:"binary,omitempty" json:"binary,omitempty"`     // RoleBinary only
	Ordering []string           `yaml:"ordering,omitempty" json:"ordering,omitempty"` // RoleOrdinal only
	// Percent marks a numeric field whose raw form is a percentage string
	// ("15 %") converted to a decimal fraction during cleaning.
	Percent bool `yaml:"percent,omitempty" json:"percent,omitempty"`
}

// Contract is the canonical declaration of every feature column, the target,
// and the raw columns dropped during cleaning. It is the single table all
// pipeline stages consult, so the declared roles and the processed columns
// cannot drift apart.
type Contract struct {
	Fields      []FieldSpec `yaml:"fields" json:"fields"`
	DropColumns []string    `yaml:"drop_columns" json:"drop_columns"`
}

// DefaultContract returns the contract for the HR attrition dataset.
func DefaultContract() *Contract {
	return &Contract{
		Fields: []FieldSpec{
			{Name: "age", Role: RoleNumeric},
			{Name: "revenu_mensuel", Role: RoleNumeric},
			{Name: "nombre_experiences_precedentes", Role: RoleNumeric},
			{Name: "annees_dans_l_entreprise", Role: RoleNumeric},
			{Name: "satisfaction_employee_environnement", Role: RoleNumeric},
			{Name: "note_evaluation_precedente", Role: RoleNumeric},
			{Name: "satisfaction_employee_nature_travail", Role: RoleNumeric},
			{Name: "satisfaction_employee_equipe", Role: RoleNumeric},
			{Name: "satisfaction_employee_equilibre_pro_perso", Role: RoleNumeric},
			{Name: "note_evaluation_actuelle", Role: RoleNumeric},
			{Name: ColSalaryRaise, Role: RoleNumeric, Percent: true},
			{Name: "nombre_participation_pee", Role: RoleNumeric},
			{Name: "nb_formations_suivies", Role: RoleNumeric},
			{Name: "distance_domicile_travail", Role: RoleNumeric},
			{Name: "niveau_education", Role: RoleNumeric},
			{Name: "annees_depuis_la_derniere_promotion", Role: RoleNumeric},
			{Name: "genre", Role: RoleBinary, Binary: map[string]float64{"M": 0, "F": 1}},
			{Name: "heure_supplementaires", Role: RoleBinary, Binary: map[string]float64{"Non": 0, "Oui": 1}},
			{Name: "frequence_deplacement", Role: RoleOrdinal, Ordering: []string{"Aucun", "Occasionnel", "Frequent"}},
			{Name: "statut_marital", Role: RoleNominal},
			{Name: "departement", Role: RoleNominal},
			{Name: "poste", Role: RoleNominal},
			{Name: "domaine_etude", Role: RoleNominal},
		},
		DropColumns: []string{
			ColCreatedAt,
			ColModifiedAt,
			"nombre_heures_travailless",
			"eval_number",
			"nombre_employee_sous_responsabilite",
			"code_sondage",
			"ayant_enfants",
			"annee_experience_totale",
			"niveau_hierarchique_poste",
			"annees_dans_le_poste_actuel",
			"annes_sous_responsable_actuel",
		},
	}
}

// LoadContract reads a contract from a YAML file, for deployments that
// override the built-in field roles or ordinal orderings.
func LoadContract(path string) (*Contract, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "contract: read %s", path)
	}
	var c Contract
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, eris.Wrapf(err, "contract: parse %s", path)
	}
	if len(c.Fields) == 0 {
		return nil, eris.Errorf("contract: %s declares no fields", path)
	}
	return &c, nil
}

// Spec returns the declaration for the named field, or nil.
func (c *Contract) Spec(name string) *FieldSpec {
	for i := range c.Fields {
		if c.Fields[i].Name == name {
			return &c.Fields[i]
		}
	}
	return nil
}

// FieldsByRole returns the declared fields with the given role, in
// declaration order.
func (c *Contract) FieldsByRole(role Role) []FieldSpec {
	var out []FieldSpec
	for _, f := range c.Fields {
		if f.Role == role {
			out = append(out, f)
		}
	}
	return out
}

// FeatureNames returns every declared feature column in declaration order.
func (c *Contract) FeatureNames() []string {
	out := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		out[i] = f.Name
	}
	return out
}
