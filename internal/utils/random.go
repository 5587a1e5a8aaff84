package utils

import (
	"fmt"
	"math/rand"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var givenNames = []string{
	"Ana", "João", "Maria", "José", "Francisco", "Antônio", "Carlos", "Paulo",
	"Lucas", "Luís", "Juliana", "Mariana", "Fernanda", "Patrícia", "Aline",
	"Rafael", "Gabriel", "Beatriz", "Letícia", "Márcio", "Sérgio", "Camila",
}

var familyNames = []string{
	"Silva", "Santos", "Oliveira", "Souza", "Rodrigues", "Ferreira", "Alves",
	"Pereira", "Lima", "Gomes", "Costa", "Ribeiro", "Martins", "Carvalho",
	"Araújo", "Melo", "Barbosa", "Rocha", "Dias", "Nascimento", "Conceição",
}

// RandomName returns a given name followed by one or two family names.
func RandomName() string {
	parts := []string{givenNames[rand.Intn(len(givenNames))]}
	for i := 0; i < rand.Intn(2)+1; i++ {
		parts = append(parts, familyNames[rand.Intn(len(familyNames))])
	}
	return strings.Join(parts, " ")
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// EmailFromName builds a lowercase ASCII address such as
// joao.silva42@example.com.
func EmailFromName(name, domain string) string {
	plain, _, err := transform.String(stripMarks, name)
	if err != nil {
		plain = name
	}

	fields := strings.Fields(strings.ToLower(plain))
	local := fields[0]
	if len(fields) > 1 {
		local += "." + fields[len(fields)-1]
	}

	return fmt.Sprintf("%s%d@%s", local, rand.Intn(1000), domain)
}

// RandomCPF returns a formatted taxpayer number with valid check digits.
func RandomCPF() string {
	digits := make([]int, 9, 11)
	for {
		for i := range digits[:9] {
			digits[i] = rand.Intn(10)
		}
		if digits[0] != digits[1] || digits[1] != digits[2] {
			break
		}
	}
	digits = append(digits, cpfCheckDigit(digits))
	digits = append(digits, cpfCheckDigit(digits))

	var sb strings.Builder
	for i, d := range digits {
		switch i {
		case 3, 6:
			sb.WriteByte('.')
		case 9:
			sb.WriteByte('-')
		}
		sb.WriteByte(byte('0' + d))
	}
	return sb.String()
}

var areaCodes = []int{11, 21, 31, 41, 47, 48, 51, 61, 71, 81, 85}

// RandomPhone returns a mobile number like +55 11 98765-4321.
func RandomPhone() string {
	return fmt.Sprintf("+55 %d 9%04d-%04d", areaCodes[rand.Intn(len(areaCodes))], rand.Intn(10000), rand.Intn(10000))
}

// RandomAdvisorCode returns codes like ADV4821.
func RandomAdvisorCode() string {
	return fmt.Sprintf("ADV%04d", rand.Intn(10000))
}
