package main

import (
	"bufio"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/xela07ax/spaceai-console/internal/infra"
)

var (
	bcryptCost int
	keyBits    int
	keyOutDir  string
)

// hashPasswordCmd печатает bcrypt-хеш для auth.users[].password_hash
var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for an operator password",
	Long: `Prints a bcrypt hash suitable for auth.users[].password_hash.
Reads the password from stdin when no argument is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := ""
		if len(args) == 1 {
			password = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		if password == "" {
			return errors.New("password must not be empty")
		}

		cost := bcryptCost
		if !cmd.Flags().Changed("cost") {
			// Без флага берем auth.bcrypt_cost из конфига, если он есть
			if cfg, err := infra.LoadConfig(configFile); err == nil && cfg.Auth.BcryptCost > 0 {
				cost = cfg.Auth.BcryptCost
			}
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(hash))
		return nil
	},
}

// keygenCmd создает пару RSA ключей для подписи токенов (RS256)
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an RSA key pair for RS256 tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := rsa.GenerateKey(rand.Reader, keyBits)
		if err != nil {
			return fmt.Errorf("generate key: %w", err)
		}
		pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		if err != nil {
			return fmt.Errorf("marshal public key: %w", err)
		}
		privDER, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			return fmt.Errorf("marshal private key: %w", err)
		}

		if err := os.MkdirAll(keyOutDir, 0o700); err != nil {
			return err
		}
		privPath := filepath.Join(keyOutDir, "private.pem")
		pubPath := filepath.Join(keyOutDir, "public.pem")
		if err := os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}), 0o600); err != nil {
			return err
		}
		if err := os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0o644); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "private key: %s\npublic key:  %s\n", privPath, pubPath)
		return nil
	},
}

func init() {
	hashPasswordCmd.Flags().IntVar(&bcryptCost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	keygenCmd.Flags().IntVar(&keyBits, "bits", 2048, "RSA key size")
	keygenCmd.Flags().StringVarP(&keyOutDir, "out", "o", "keys", "output directory")
}
