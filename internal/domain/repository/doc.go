// Package repository define las interfaces de repositorio de dominio.
//
// Estas interfaces representan contratos de negocio, independientes del
// almacenamiento subyacente (PostgreSQL, memoria, etc.). El motor de
// distribución (internal/distribution) solo consume estos contratos: el alta
// y baja de usuarios y segmentos es responsabilidad de otro servicio.
//
// Las implementaciones concretas viven en internal/store/adapters/.
//
// Arquitectura:
//
//	┌─────────────────────────────────────────────────────┐
//	│        distribution.Engine / cmd/segmentation       │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│        domain/repository (interfaces)               │
//	│  UserRepository, SegmentRepository, Membership...   │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	              ┌─────────┴─────────┐
//	              ▼                   ▼
//	      ┌─────────────┐     ┌─────────────┐
//	      │  adapters/  │     │  adapters/  │
//	      │     pg      │     │   memory    │
//	      └─────────────┘     └─────────────┘
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - La relación usuario↔segmento solo se modifica dentro de MembershipRepository.WithinTx
//   - Errores de dominio están en errors.go
package repository
