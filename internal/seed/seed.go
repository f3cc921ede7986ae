package seed

import "walk-with-mung/internal/domain/walks"

// Dogs devuelve los perros iniciales del refugio para el modo in-memory.
// Los adapters SQL traen el mismo contenido en su migración de seed.
func Dogs() []walks.Dog {
	return []walks.Dog{
		{ID: 1, Name: "Mung", Breed: "Jindo", Age: 3, Description: "Energetic boy who loves long riverside walks.", Image: "/images/dogs/mung.jpg", Status: walks.DogAvailable},
		{ID: 2, Name: "Bori", Breed: "Maltese", Age: 5, Description: "Small and gentle, prefers short slow strolls.", Image: "/images/dogs/bori.jpg", Status: walks.DogAvailable},
		{ID: 3, Name: "Choco", Breed: "Poodle", Age: 2, Description: "Playful chocolate poodle, friendly with everyone.", Image: "/images/dogs/choco.jpg", Status: walks.DogAvailable},
		{ID: 4, Name: "Dubu", Breed: "Samoyed", Age: 4, Description: "Fluffy cloud, pulls a little on the leash.", Image: "/images/dogs/dubu.jpg", Status: walks.DogAvailable},
		{ID: 5, Name: "Kkami", Breed: "Shiba Inu", Age: 6, Description: "Independent senior, walks best alone.", Image: "/images/dogs/kkami.jpg", Status: walks.DogAvailable},
		{ID: 6, Name: "Byeol", Breed: "Golden Retriever", Age: 1, Description: "Puppy energy, needs a patient walker.", Image: "/images/dogs/byeol.jpg", Status: walks.DogAvailable},
	}
}
