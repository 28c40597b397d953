package model

import (
	"encoding/json"
	"time"
)

// EmployeeInput is one raw employee record as accepted by the prediction
// API. Field names and raw representations match the HR extracts: binary and
// ordinal fields arrive as text, and the previous salary raise arrives as a
// percentage string ("15 %") even though training data stores the decimal
// fraction. That asymmetry is deliberate and preserved; the cleaning stage
// accepts both forms.
type EmployeeInput struct {
	IDEmploye                             string  `json:"id_employee,omitempty"`
	Age                                   float64 `json:"age"`
	Genre                                 string  `json:"genre"`
	RevenuMensuel                         float64 `json:"revenu_mensuel"`
	StatutMarital                         string  `json:"statut_marital"`
	Departement                           string  `json:"departement"`
	Poste                                 string  `json:"poste"`
	NombreExperiencesPrecedentes          float64 `json:"nombre_experiences_precedentes"`
	AnneesDansLEntreprise                 float64 `json:"annees_dans_l_entreprise"`
	SatisfactionEnvironnement             float64 `json:"satisfaction_employee_environnement"`
	SatisfactionNatureTravail             float64 `json:"satisfaction_employee_nature_travail"`
	SatisfactionEquipe                    float64 `json:"satisfaction_employee_equipe"`
	SatisfactionEquilibreProPerso         float64 `json:"satisfaction_employee_equilibre_pro_perso"`
	NoteEvaluationPrecedente              float64 `json:"note_evaluation_precedente"`
	NoteEvaluationActuelle                float64 `json:"note_evaluation_actuelle"`
	HeureSupplementaires                  string  `json:"heure_supplementaires"`
	AugmentationSalairePrecedente         string  `json:"augementation_salaire_precedente"`
	NombreParticipationPEE                float64 `json:"nombre_participation_pee"`
	NbFormationsSuivies                   float64 `json:"nb_formations_suivies"`
	DistanceDomicileTravail               float64 `json:"distance_domicile_travail"`
	NiveauEducation                       float64 `json:"niveau_education"`
	DomaineEtude                          string  `json:"domaine_etude"`
	FrequenceDeplacement                  string  `json:"frequence_deplacement"`
	AnneesDepuisLaDernierePromotion       float64 `json:"annees_depuis_la_derniere_promotion"`
}

// inputColumns lists the raw table columns an EmployeeInput maps to, in a
// fixed order shared by every batch.
var inputColumns = []string{
	ColEmployeeID,
	"age",
	"genre",
	"revenu_mensuel",
	"statut_marital",
	"departement",
	"poste",
	"nombre_experiences_precedentes",
	"annees_dans_l_entreprise",
	"satisfaction_employee_environnement",
	"satisfaction_employee_nature_travail",
	"satisfaction_employee_equipe",
	"satisfaction_employee_equilibre_pro_perso",
	"note_evaluation_precedente",
	"note_evaluation_actuelle",
	"heure_supplementaires",
	ColSalaryRaise,
	"nombre_participation_pee",
	"nb_formations_suivies",
	"distance_domicile_travail",
	"niveau_education",
	"domaine_etude",
	"frequence_deplacement",
	"annees_depuis_la_derniere_promotion",
}

// InputColumns returns the raw table columns an EmployeeInput maps to, in
// their fixed order.
func InputColumns() []string {
	out := make([]string, len(inputColumns))
	copy(out, inputColumns)
	return out
}

// InputTable converts raw API records into a table in their original, raw
// representation, ready for the cleaning stage.
func InputTable(ins []EmployeeInput) *Table {
	t := NewTable(inputColumns)
	for _, in := range ins {
		// AppendRow cannot fail here: the cell count is fixed.
		_ = t.AppendRow([]Cell{
			String(in.IDEmploye),
			Number(in.Age),
			String(in.Genre),
			Number(in.RevenuMensuel),
			String(in.StatutMarital),
			String(in.Departement),
			String(in.Poste),
			Number(in.NombreExperiencesPrecedentes),
			Number(in.AnneesDansLEntreprise),
			Number(in.SatisfactionEnvironnement),
			Number(in.SatisfactionNatureTravail),
			Number(in.SatisfactionEquipe),
			Number(in.SatisfactionEquilibreProPerso),
			Number(in.NoteEvaluationPrecedente),
			Number(in.NoteEvaluationActuelle),
			String(in.HeureSupplementaires),
			String(in.AugmentationSalairePrecedente),
			Number(in.NombreParticipationPEE),
			Number(in.NbFormationsSuivies),
			Number(in.DistanceDomicileTravail),
			Number(in.NiveauEducation),
			String(in.DomaineEtude),
			String(in.FrequenceDeplacement),
			Number(in.AnneesDepuisLaDernierePromotion),
		})
	}
	return t
}

// Prediction is the outcome of one inference: the employee identifier
// (caller-supplied or positionally assigned), the departure probability, and
// the thresholded class.
type Prediction struct {
	IDEmploye         string  `json:"id_employe"`
	ProbabiliteDepart float64 `json:"probabilite_depart"`
	PredictionDepart  int     `json:"prediction_depart"`
}

// AuditEntry is one prediction-log row: the raw input payload as received,
// the produced prediction, a timestamp, and the artifact version that served
// the call.
type AuditEntry struct {
	LogID        int64           `json:"log_id"`
	Timestamp    time.Time       `json:"timestamp_requete"`
	EmployeeID   string          `json:"employee_id_concerne"`
	Input        json.RawMessage `json:"input_data"`
	Probability  float64         `json:"prediction_probabilite"`
	Class        int             `json:"prediction_classe"`
	ModelVersion string          `json:"version_modele"`
}
