package homework

// Verdict is a recognized review outcome for a homework.
//
// The set is closed on purpose: a code outside it means the API contract
// changed and must surface as an error, never as a fallback text.
type Verdict string

const (
	VerdictApproved  Verdict = "approved"
	VerdictReviewing Verdict = "reviewing"
	VerdictRejected  Verdict = "rejected"
)

var verdictText = map[Verdict]string{
	VerdictApproved:  "Работа проверена: ревьюеру всё понравилось. Ура!",
	VerdictReviewing: "Работа взята на проверку ревьюером.",
	VerdictRejected:  "Работа проверена: у ревьюера есть замечания.",
}

// Text returns the fixed display string for the verdict.
// The second result is false for codes outside the recognized set.
func (v Verdict) Text() (string, bool) {
	t, ok := verdictText[v]
	return t, ok
}

func (v Verdict) Known() bool {
	_, ok := verdictText[v]
	return ok
}
