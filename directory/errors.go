package directory

import (
	"errors"
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/goliatone/go-servicelayer/service"
)

// validationCodes are the result codes reporting a rejected entry.
var validationCodes = []uint16{
	ldap.LDAPResultEntryAlreadyExists,
	ldap.LDAPResultObjectClassViolation,
	ldap.LDAPResultConstraintViolation,
	ldap.LDAPResultInvalidAttributeSyntax,
	ldap.LDAPResultUndefinedAttributeType,
	ldap.LDAPResultNamingViolation,
}

// Translate maps LDAP result codes and accessor sentinels onto the service
// error taxonomy. Anything it does not recognize is wrapped as is.
func Translate(op service.Operation, id any, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrMissingRDN), errors.Is(err, ErrRDNChange):
		return service.NewValidationError(map[string]string{"rdn": err.Error()}, err)
	}

	var lerr *ldap.Error
	if errors.As(err, &lerr) {
		if lerr.ResultCode == ldap.LDAPResultNoSuchObject {
			return service.NewNotFoundError(id, err)
		}
		for _, code := range validationCodes {
			if lerr.ResultCode == code {
				return service.NewValidationError(map[string]string{
					"entry": ldap.LDAPResultCodeMap[code],
				}, err)
			}
		}
	}

	return fmt.Errorf("directory %s: %w", op, err)
}
