package email

const (
	subjectPasswordReset = "Réinitialisation de votre mot de passe"
	subjectHotLeadFmt    = "Lead prioritaire : %s"
)
