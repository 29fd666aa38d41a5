package sso

// AttributeUsername is the profile attribute holding the resolved username
const AttributeUsername = "username"

// Profile is the local identity built from validated credentials. Once created it
// belongs to the host session layer.
type Profile struct {
	ID         string            `json:"id"`
	ClientName string            `json:"client_name"`
	Attributes map[string]string `json:"attributes"`
}

// ProfileCreator maps validated credentials to a profile
type ProfileCreator interface {
	Create(creds *Credentials) (*Profile, error)
}

// UsernameProfileCreator builds a profile whose id is the resolved username
type UsernameProfileCreator struct{}

// NewUsernameProfileCreator creates a username profile creator
func NewUsernameProfileCreator() *UsernameProfileCreator {
	return &UsernameProfileCreator{}
}

// Create returns ErrCredentialsNotValidated when called before a successful validation
func (c *UsernameProfileCreator) Create(creds *Credentials) (*Profile, error) {
	username, ok := creds.Username()
	if !ok {
		return nil, ErrCredentialsNotValidated
	}

	return &Profile{
		ID:         username,
		ClientName: creds.ClientName(),
		Attributes: map[string]string{
			AttributeUsername: username,
		},
	}, nil
}
