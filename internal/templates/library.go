// Package templates scores a manuscript against a fixed library of
// narrative templates. The library is static configuration: beat names,
// theoretical positions and lexical cues, loaded once and never mutated.
package templates

type Type string

const (
	ThreeAct      Type = "three_act"
	HeroJourney   Type = "hero_journey"
	SaveTheCat    Type = "save_the_cat"
	Kishotenketsu Type = "kishotenketsu"
	FiveAct       Type = "five_act"
)

type beatDef struct {
	ID               string
	Name             string
	Description      string
	ExpectedPosition float64
	Tolerance        float64
	// Below this chapter count the beat cannot be placed meaningfully and
	// is reported n_a instead of missing.
	MinChapters int
	Cues        []string
}

type templateDef struct {
	Type        Type
	Name        string
	Description string
	Beats       []beatDef
}

// Shared cue lexicons. Cues are matched as substrings over normalized
// chapter text.
var (
	cuesSetup      = []string{"vivía", "cada mañana", "como siempre", "el pueblo", "la ciudad donde", "desde pequeñ", "su rutina", "su vida era"}
	cuesInciting   = []string{"de repente", "de pronto", "todo cambió", "aquel día llegó", "apareció", "descubrió", "la noticia", "una carta", "un mensaje", "encontró"}
	cuesRefusal    = []string{"no quería", "se negó", "dudó", "tenía miedo", "no podía aceptar", "vaciló", "temía"}
	cuesMentor     = []string{"maestro", "mentor", "anciano", "consejo", "le enseñó", "guía", "sabio", "aprendió de"}
	cuesThreshold  = []string{"partió", "se marchó", "dejó atrás", "abandonó", "cruzó", "el viaje", "frontera", "por primera vez", "decidió"}
	cuesTests      = []string{"aliado", "enemigo", "prueba", "lucha", "se enfrentó", "obstáculo", "desafío", "conflicto", "discutieron", "amistad"}
	cuesMidpoint   = []string{"comprendió entonces", "la verdad", "reveló", "descubrió que", "nada volvería a ser", "giro", "en realidad"}
	cuesCrisis     = []string{"todo parecía perdido", "derrota", "perdió", "traición", "traicionó", "sacrificio", "murió", "la muerte", "sin esperanza", "desesperación"}
	cuesReward     = []string{"victoria", "logró", "consiguió", "recompensa", "alivio", "por fin", "triunfo"}
	cuesReturn     = []string{"regresó", "volvió", "el regreso", "camino de vuelta", "de regreso", "emprendió la vuelta"}
	cuesClimax     = []string{"enfrentamiento final", "batalla", "clímax", "se enfrentaron", "el momento decisivo", "todo dependía", "última oportunidad", "luchó"}
	cuesResolution = []string{"desde entonces", "finalmente", "por fin", "la paz", "equilibrio", "nueva vida", "años después todos", "así terminó", "nunca olvidaron"}
	cuesTheme      = []string{"lo importante es", "la lección", "aprendería que", "el valor de", "lo que de verdad"}
	cuesTwist      = []string{"sin embargo", "resultó que", "en realidad", "nadie esperaba", "para su sorpresa", "lo inesperado", "se reveló"}
	cuesCalm       = []string{"la vida cotidiana", "los días pasaban", "tranquil", "serenidad", "la rutina", "sin sobresaltos"}
	cuesFalling    = []string{"después de aquello", "poco a poco", "las aguas volvieron", "se recuperó", "el silencio volvió", "tras la batalla"}
)

// library order is the fixed tie-break priority for best_match.
var library = []templateDef{
	{
		Type:        ThreeAct,
		Name:        "Tres Actos",
		Description: "Estructura clásica: planteamiento, nudo y desenlace (Aristóteles → Syd Field).",
		Beats: []beatDef{
			{ID: "setup", Name: "Presentación", Description: "Mundo ordinario, personajes y conflicto inicial", ExpectedPosition: 0.05, Tolerance: 0.10, MinChapters: 3, Cues: cuesSetup},
			{ID: "inciting_incident", Name: "Incidente detonante", Description: "Evento que pone la historia en marcha", ExpectedPosition: 0.10, Tolerance: 0.08, MinChapters: 3, Cues: cuesInciting},
			{ID: "first_plot_point", Name: "Primer punto de giro", Description: "El protagonista entra en el conflicto (fin Acto I)", ExpectedPosition: 0.25, Tolerance: 0.08, MinChapters: 4, Cues: cuesThreshold},
			{ID: "rising_action", Name: "Acción creciente", Description: "Complicaciones, alianzas, conflictos secundarios", ExpectedPosition: 0.40, Tolerance: 0.15, MinChapters: 3, Cues: cuesTests},
			{ID: "midpoint", Name: "Punto medio", Description: "Revelación o giro que cambia la perspectiva", ExpectedPosition: 0.50, Tolerance: 0.08, MinChapters: 4, Cues: cuesMidpoint},
			{ID: "second_plot_point", Name: "Segundo punto de giro", Description: "Crisis máxima, todo parece perdido (fin Acto II)", ExpectedPosition: 0.75, Tolerance: 0.08, MinChapters: 4, Cues: cuesCrisis},
			{ID: "climax", Name: "Clímax", Description: "Enfrentamiento final, punto de máxima tensión", ExpectedPosition: 0.88, Tolerance: 0.10, MinChapters: 3, Cues: cuesClimax},
			{ID: "resolution", Name: "Resolución", Description: "Nuevo equilibrio, consecuencias del clímax", ExpectedPosition: 0.95, Tolerance: 0.08, MinChapters: 3, Cues: cuesResolution},
		},
	},
	{
		Type:        HeroJourney,
		Name:        "Viaje del Héroe",
		Description: "Monomito de Campbell: el protagonista sale de su mundo, enfrenta pruebas y regresa transformado.",
		Beats: []beatDef{
			{ID: "ordinary_world", Name: "Mundo ordinario", Description: "Vida cotidiana del héroe antes de la aventura", ExpectedPosition: 0.04, Tolerance: 0.06, MinChapters: 3, Cues: cuesSetup},
			{ID: "call_to_adventure", Name: "Llamada a la aventura", Description: "El héroe recibe un desafío o llamada", ExpectedPosition: 0.10, Tolerance: 0.06, MinChapters: 3, Cues: cuesInciting},
			{ID: "refusal", Name: "Rechazo de la llamada", Description: "Dudas, miedo, resistencia inicial", ExpectedPosition: 0.14, Tolerance: 0.06, MinChapters: 5, Cues: cuesRefusal},
			{ID: "mentor", Name: "Encuentro con el mentor", Description: "Un guía o aliado prepara al héroe", ExpectedPosition: 0.18, Tolerance: 0.06, MinChapters: 5, Cues: cuesMentor},
			{ID: "crossing_threshold", Name: "Cruce del umbral", Description: "El héroe deja su mundo conocido", ExpectedPosition: 0.25, Tolerance: 0.08, MinChapters: 3, Cues: cuesThreshold},
			{ID: "tests_allies", Name: "Pruebas, aliados, enemigos", Description: "Retos y nuevas relaciones en el mundo especial", ExpectedPosition: 0.40, Tolerance: 0.12, MinChapters: 3, Cues: cuesTests},
			{ID: "approach_cave", Name: "Acercamiento a la cueva", Description: "Preparación para el desafío central", ExpectedPosition: 0.50, Tolerance: 0.08, MinChapters: 5, Cues: cuesMidpoint},
			{ID: "ordeal", Name: "Prueba suprema", Description: "El mayor desafío, muerte simbólica", ExpectedPosition: 0.60, Tolerance: 0.08, MinChapters: 3, Cues: cuesCrisis},
			{ID: "reward", Name: "Recompensa", Description: "El héroe obtiene lo que buscaba", ExpectedPosition: 0.68, Tolerance: 0.06, MinChapters: 5, Cues: cuesReward},
			{ID: "road_back", Name: "Camino de regreso", Description: "Vuelta al mundo ordinario con consecuencias", ExpectedPosition: 0.78, Tolerance: 0.08, MinChapters: 5, Cues: cuesReturn},
			{ID: "resurrection", Name: "Resurrección", Description: "Prueba final, transformación definitiva", ExpectedPosition: 0.88, Tolerance: 0.08, MinChapters: 3, Cues: cuesClimax},
			{ID: "return_elixir", Name: "Regreso con el elixir", Description: "El héroe vuelve transformado", ExpectedPosition: 0.95, Tolerance: 0.06, MinChapters: 3, Cues: cuesResolution},
		},
	},
	{
		Type:        SaveTheCat,
		Name:        "Save the Cat",
		Description: "Estructura de Blake Snyder en 15 beats, popular en guion y ficción comercial.",
		Beats: []beatDef{
			{ID: "opening_image", Name: "Imagen de apertura", Description: "Primera impresión del tono y mundo", ExpectedPosition: 0.02, Tolerance: 0.04, MinChapters: 8, Cues: cuesSetup},
			{ID: "theme_stated", Name: "Tema enunciado", Description: "Alguien dice la lección de la historia", ExpectedPosition: 0.05, Tolerance: 0.05, MinChapters: 8, Cues: cuesTheme},
			{ID: "setup_stc", Name: "Set-up", Description: "Presentación del protagonista y su mundo", ExpectedPosition: 0.08, Tolerance: 0.06, MinChapters: 3, Cues: cuesSetup},
			{ID: "catalyst", Name: "Catalizador", Description: "Evento que lo cambia todo", ExpectedPosition: 0.10, Tolerance: 0.04, MinChapters: 3, Cues: cuesInciting},
			{ID: "debate", Name: "Debate", Description: "¿Debería aceptar el desafío?", ExpectedPosition: 0.15, Tolerance: 0.06, MinChapters: 8, Cues: cuesRefusal},
			{ID: "break_into_two", Name: "Entrada al Acto II", Description: "Decisión de actuar, nuevo mundo", ExpectedPosition: 0.25, Tolerance: 0.06, MinChapters: 3, Cues: cuesThreshold},
			{ID: "b_story", Name: "Trama B", Description: "Historia de amor o amistad paralela", ExpectedPosition: 0.30, Tolerance: 0.08, MinChapters: 8, Cues: cuesTests},
			{ID: "fun_and_games", Name: "Diversión y juegos", Description: "La promesa de la premisa", ExpectedPosition: 0.38, Tolerance: 0.10, MinChapters: 5, Cues: cuesTests},
			{ID: "midpoint_stc", Name: "Punto medio", Description: "Victoria falsa o derrota falsa", ExpectedPosition: 0.50, Tolerance: 0.06, MinChapters: 4, Cues: cuesMidpoint},
			{ID: "bad_guys_close_in", Name: "Los malos se acercan", Description: "Presión externa e interna aumenta", ExpectedPosition: 0.62, Tolerance: 0.08, MinChapters: 5, Cues: cuesCrisis},
			{ID: "all_is_lost", Name: "Todo está perdido", Description: "El peor momento, muerte del mentor", ExpectedPosition: 0.75, Tolerance: 0.06, MinChapters: 3, Cues: cuesCrisis},
			{ID: "dark_night_soul", Name: "Noche oscura del alma", Description: "Reflexión, desesperanza", ExpectedPosition: 0.80, Tolerance: 0.06, MinChapters: 8, Cues: cuesCrisis},
			{ID: "break_into_three", Name: "Entrada al Acto III", Description: "El héroe encuentra la solución", ExpectedPosition: 0.85, Tolerance: 0.05, MinChapters: 5, Cues: cuesMidpoint},
			{ID: "finale", Name: "Finale", Description: "Ejecución del plan, enfrentamiento final", ExpectedPosition: 0.90, Tolerance: 0.06, MinChapters: 3, Cues: cuesClimax},
			{ID: "final_image", Name: "Imagen final", Description: "Contraste con la imagen de apertura", ExpectedPosition: 0.98, Tolerance: 0.04, MinChapters: 8, Cues: cuesResolution},
		},
	},
	{
		Type:        Kishotenketsu,
		Name:        "Kishotenketsu",
		Description: "Estructura japonesa en 4 actos: introducción, desarrollo, giro y conclusión. Sin conflicto central obligatorio.",
		Beats: []beatDef{
			{ID: "ki_intro", Name: "Ki (起) — Introducción", Description: "Presentación de personajes y escenario", ExpectedPosition: 0.12, Tolerance: 0.08, MinChapters: 3, Cues: cuesSetup},
			{ID: "sho_development", Name: "Shō (承) — Desarrollo", Description: "Profundización sin conflicto, vida cotidiana", ExpectedPosition: 0.37, Tolerance: 0.08, MinChapters: 3, Cues: cuesCalm},
			{ID: "ten_twist", Name: "Ten (転) — Giro", Description: "Cambio inesperado, nueva perspectiva", ExpectedPosition: 0.65, Tolerance: 0.08, MinChapters: 3, Cues: cuesTwist},
			{ID: "ketsu_conclusion", Name: "Ketsu (結) — Conclusión", Description: "Reconciliación de elementos, nuevo equilibrio", ExpectedPosition: 0.90, Tolerance: 0.08, MinChapters: 3, Cues: cuesResolution},
		},
	},
	{
		Type:        FiveAct,
		Name:        "Cinco Actos (Freytag)",
		Description: "Pirámide de Freytag: exposición, acción ascendente, clímax, acción descendente, desenlace.",
		Beats: []beatDef{
			{ID: "exposition", Name: "Exposición", Description: "Presentación del mundo y los personajes", ExpectedPosition: 0.08, Tolerance: 0.08, MinChapters: 3, Cues: cuesSetup},
			{ID: "rising_action_5", Name: "Acción ascendente", Description: "Complicaciones y tensión creciente", ExpectedPosition: 0.30, Tolerance: 0.12, MinChapters: 3, Cues: cuesTests},
			{ID: "climax_5", Name: "Clímax", Description: "Punto de máxima tensión narrativa", ExpectedPosition: 0.50, Tolerance: 0.10, MinChapters: 3, Cues: cuesClimax},
			{ID: "falling_action", Name: "Acción descendente", Description: "Consecuencias del clímax", ExpectedPosition: 0.72, Tolerance: 0.10, MinChapters: 4, Cues: cuesFalling},
			{ID: "denouement", Name: "Desenlace", Description: "Resolución final de todos los hilos", ExpectedPosition: 0.92, Tolerance: 0.08, MinChapters: 3, Cues: cuesResolution},
		},
	},
}
