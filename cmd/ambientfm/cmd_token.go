/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/ambientfm/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint credentials for the HTTP API",
}

var tokenJWTCmd = &cobra.Command{
	Use:   "jwt",
	Short: "Mint a JWT for a user",
	RunE:  runTokenJWT,
}

var tokenAPIKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Mint a long-lived API key",
	Long:  "Create an API key for machine clients. The plaintext key is printed once and only its hash is stored.",
	RunE:  runTokenAPIKey,
}

var (
	tokenUserID   string
	tokenTenantID string
	tokenTTL      time.Duration
	apiKeyName    string
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenJWTCmd)
	tokenCmd.AddCommand(tokenAPIKeyCmd)

	tokenJWTCmd.Flags().StringVar(&tokenUserID, "user", "", "User ID to embed in the token (required)")
	tokenJWTCmd.Flags().StringVar(&tokenTenantID, "tenant", "", "Tenant ID to embed in the token")
	tokenJWTCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	tokenJWTCmd.MarkFlagRequired("user")

	tokenAPIKeyCmd.Flags().StringVar(&apiKeyName, "name", "", "Descriptive key name (required)")
	tokenAPIKeyCmd.Flags().StringVar(&tokenTenantID, "tenant", "", "Tenant ID the key is scoped to")
	tokenAPIKeyCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Key lifetime, 0 for no expiry")
	tokenAPIKeyCmd.MarkFlagRequired("name")
}

func runTokenJWT(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if cfg.JWTSigningKey == "" {
		return fmt.Errorf("AMBIENT_JWT_SIGNING_KEY is not set")
	}

	token, err := auth.Issue([]byte(cfg.JWTSigningKey), auth.Claims{
		UserID:   tokenUserID,
		TenantID: tokenTenantID,
	}, tokenTTL)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	fmt.Println(token)
	return nil
}

func runTokenAPIKey(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	plaintext, record, err := auth.GenerateAPIKey(apiKeyName, tokenTenantID, tokenTTL)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	if err := database.Create(record).Error; err != nil {
		return fmt.Errorf("store key: %w", err)
	}

	fmt.Printf("API key (save it now, it is not stored):\n%s\n", plaintext)
	return nil
}
