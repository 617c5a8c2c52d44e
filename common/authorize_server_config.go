package common

import (
	"fmt"

	"github.com/apex/log"
	"github.com/go-playground/validator/v10"

	"github.com/jmazzahacks/api-gatekeeper/model"
)

/*
Validate the gatekeeper server config

	@return nil if valid, or an error
*/
func (c GatekeeperServerConfig) Validate() error {
	validate := validator.New()

	// Validate the custom regex section first
	if err := validate.Struct(&c.CustomRegex); err != nil {
		log.WithError(err).Errorf("Custom validator support not defined")
		return err
	}

	// Short circuit if the authorize submodule is not enabled
	if !c.Authorization.Enabled {
		return nil
	}

	// Create a custom validator
	customValidate, err := c.CustomRegex.DefineCustomFieldValidator()
	if err != nil {
		log.WithError(err).Errorf("Unable to define custom validator support")
		return err
	}
	if err := customValidate.RegisterWithValidator(validate); err != nil {
		log.WithError(err).Errorf("Unable to update validator with custom tags")
		return err
	}

	// Perform basic validation
	if err := validate.Struct(&c); err != nil {
		log.WithError(err).Errorf("General config parse failure")
		return err
	}

	// Verify route IDs are unique
	seenRouteID := map[string]bool{}
	for _, route := range c.Seed.Routes {
		if _, ok := seenRouteID[route.ID]; ok {
			msg := fmt.Sprintf("Route %s already defined", route.ID)
			log.Error(msg)
			return fmt.Errorf(msg)
		}
		seenRouteID[route.ID] = true

		// Verify methods for this route are unique
		seenMethod := map[string]bool{}
		for _, method := range route.Methods {
			if _, ok := seenMethod[method.Method]; ok {
				msg := fmt.Sprintf("Route %s already defines method %s", route.ID, method.Method)
				log.Error(msg)
				return fmt.Errorf(msg)
			}
			seenMethod[method.Method] = true
			if method.AuthRequired && method.AuthType == "" {
				msg := fmt.Sprintf(
					"Route %s method %s requires auth but does not name an auth_type", route.ID, method.Method,
				)
				log.Error(msg)
				return fmt.Errorf(msg)
			}
		}
	}

	// Verify client IDs, API keys, and shared secrets are unique
	seenClientID := map[string]bool{}
	seenAPIKey := map[string]bool{}
	seenSharedSecret := map[string]bool{}
	for _, client := range c.Seed.Clients {
		if _, ok := seenClientID[client.ID]; ok {
			msg := fmt.Sprintf("Client %s already defined", client.ID)
			log.Error(msg)
			return fmt.Errorf(msg)
		}
		seenClientID[client.ID] = true

		seedClient := model.Client{}
		if client.APIKey != "" {
			seedClient.APIKey = &client.APIKey
		}
		if client.SharedSecret != "" {
			seedClient.SharedSecret = &client.SharedSecret
		}
		if !seedClient.HasCredential() {
			msg := fmt.Sprintf(
				"Client %s must have at least one of api_key or shared_secret", client.ID,
			)
			log.Error(msg)
			return fmt.Errorf(msg)
		}

		if client.APIKey != "" {
			if _, ok := seenAPIKey[client.APIKey]; ok {
				msg := fmt.Sprintf("Client %s API key collides with another client", client.ID)
				log.Error(msg)
				return fmt.Errorf(msg)
			}
			seenAPIKey[client.APIKey] = true
		}
		if client.SharedSecret != "" {
			if _, ok := seenSharedSecret[client.SharedSecret]; ok {
				msg := fmt.Sprintf("Client %s shared secret collides with another client", client.ID)
				log.Error(msg)
				return fmt.Errorf(msg)
			}
			seenSharedSecret[client.SharedSecret] = true
		}
	}

	// Verify permissions reference known clients and routes, and contain no
	// duplicate (client, route) grants
	seenGrant := map[string]bool{}
	for _, perm := range c.Seed.Permissions {
		if _, ok := seenClientID[perm.ClientID]; !ok {
			msg := fmt.Sprintf("Permission references unknown client %s", perm.ClientID)
			log.Error(msg)
			return fmt.Errorf(msg)
		}
		if _, ok := seenRouteID[perm.RouteID]; !ok {
			msg := fmt.Sprintf("Permission references unknown route %s", perm.RouteID)
			log.Error(msg)
			return fmt.Errorf(msg)
		}
		grantKey := perm.ClientID + "::" + perm.RouteID
		if _, ok := seenGrant[grantKey]; ok {
			msg := fmt.Sprintf("Permission for client %s route %s already defined", perm.ClientID, perm.RouteID)
			log.Error(msg)
			return fmt.Errorf(msg)
		}
		seenGrant[grantKey] = true

		seenAllowedMethod := map[string]bool{}
		for _, method := range perm.AllowedMethods {
			if _, ok := seenAllowedMethod[method]; ok {
				msg := fmt.Sprintf(
					"Permission for client %s route %s already allows method %s",
					perm.ClientID, perm.RouteID, method,
				)
				log.Error(msg)
				return fmt.Errorf(msg)
			}
			seenAllowedMethod[method] = true
		}
	}

	return nil
}
