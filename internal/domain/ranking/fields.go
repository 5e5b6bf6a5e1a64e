package ranking

// Canonical field names. Each is also the first candidate of its alias list, so a row
// rendered through Row.Raw normalizes to itself.
const (
	FieldIdentity    = "id"
	FieldDisplayName = "name"
	FieldWeekScore   = "week_score"
	FieldTotalScore  = "total_score"
	FieldCompetition = "competition"
	FieldGroup       = "group"
	FieldClub        = "club"
)

// FieldAliases lists, per canonical field, the upstream keys holding the same value in
// priority order. The primary source uses the English names; the fallback source answers
// with its own naming.
var FieldAliases = map[string][]string{
	FieldIdentity: {
		FieldIdentity,
		"entity_id",
		"player_id",
		"team_id",
		"club_id",
		"jugador_id",
		"equipo_id",
	},
	FieldDisplayName: {
		FieldDisplayName,
		"display_name",
		"player_name",
		"team_name",
		"full_name",
		"nombre",
	},
	FieldWeekScore: {
		FieldWeekScore,
		"score_week",
		"weekly_score",
		"score",
		"week_points",
		"points_week",
		"puntos_semana",
	},
	FieldTotalScore: {
		FieldTotalScore,
		"score_global",
		"global_score",
		"accumulated_score",
		"points_total",
		"total_points",
		"puntos_totales",
	},
	FieldCompetition: {
		FieldCompetition,
		"competition_name",
		"league",
		"competicion",
	},
	FieldGroup: {
		FieldGroup,
		"group_name",
		"division",
		"grupo",
	},
	FieldClub: {
		FieldClub,
		"club_name",
		"team",
		"equipo",
	},
}
