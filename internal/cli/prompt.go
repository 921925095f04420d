package cli

import (
	stderrors "errors"
	"fmt"

	"github.com/manifoldco/promptui"
)

// trustPrompter asks the user on the terminal whether to trust an unverified
// server certificate. It satisfies certtrust.Prompter.
type trustPrompter struct{}

func newTrustPrompter() *trustPrompter {
	return &trustPrompter{}
}

// ConfirmTrust shows the host and certificate fingerprint and asks for an
// explicit yes. Aborting the prompt counts as a decline, not an error.
func (*trustPrompter) ConfirmTrust(host, fingerprint string) (bool, error) {
	fmt.Printf("The certificate presented by %s could not be verified.\n", host)
	fmt.Printf("SHA-256 fingerprint: %s\n", fingerprint)

	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("Trust this certificate for %s", host),
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if stderrors.Is(err, promptui.ErrAbort) || stderrors.Is(err, promptui.ErrInterrupt) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
