package types

import "fmt"

// ObjectClass tags an Entry with its semantic type. The enumeration is closed:
// stored tags outside it indicate corruption, not forward compatibility.
type ObjectClass int

const (
	ObjectClassRoot ObjectClass = iota
	ObjectClassDomain
	ObjectClassOu
	ObjectClassPerson
	ObjectClassHost
	ObjectClassCredential
)

var objectClassNames = map[ObjectClass]string{
	ObjectClassRoot:       "root",
	ObjectClassDomain:     "domain",
	ObjectClassOu:         "ou",
	ObjectClassPerson:     "person",
	ObjectClassHost:       "host",
	ObjectClassCredential: "credential",
}

func (oc ObjectClass) String() string {
	if name, ok := objectClassNames[oc]; ok {
		return name
	}
	return fmt.Sprintf("objectclass(%d)", int(oc))
}

// Bytes returns the durable tag form stored in the entry table.
func (oc ObjectClass) Bytes() []byte {
	return []byte(oc.String())
}

// ObjectClassFromBytes decodes a stored tag.
func ObjectClassFromBytes(b []byte) (ObjectClass, error) {
	s := string(b)
	for oc, name := range objectClassNames {
		if name == s {
			return oc, nil
		}
	}
	return 0, fmt.Errorf("types: unknown objectclass tag %q", s)
}

// PasswordAlg identifies which KDF produced a stored credential. It is
// persisted alongside the salt and the derived bytes so records survive a
// future algorithm migration.
type PasswordAlg int

const (
	// PasswordAlgScrypt is the only KDF currently supported.
	PasswordAlgScrypt PasswordAlg = iota
)

func (a PasswordAlg) String() string {
	if a == PasswordAlgScrypt {
		return "scrypt"
	}
	return fmt.Sprintf("passwordalg(%d)", int(a))
}

// Credential is a stored password-derived secret: the algorithm tag, the salt
// it was derived with and the derived bytes themselves.
type Credential struct {
	Alg     PasswordAlg
	Salt    []byte
	Derived []byte
}
